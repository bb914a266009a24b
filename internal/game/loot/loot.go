// Package loot rolls enemy drop tables on victory and splits the winnings
// across the surviving party.
package loot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
)

// ErrInventoryFull is returned by an Inventory when the capacity test fails.
// Distribution skips that participant's share and keeps going.
var ErrInventoryFull = errors.New("inventory full")

// Inventory is the write surface for awarding items. Implementations wrap the
// inventory table; the distributor never touches storage directly.
type Inventory interface {
	AddItem(ctx context.Context, playerID, itemID string, quantity int) error
}

// Stack is one emitted drop: an item id and the rolled quantity.
type Stack struct {
	ItemID   string
	Quantity int
}

// Recipient is a surviving participant eligible for a share.
type Recipient struct {
	PlayerID string
	IsLeader bool
}

// Award records one successful grant.
type Award struct {
	PlayerID string
	ItemID   string
	Quantity int
}

// Skip records a share that could not be granted because the recipient's
// inventory was full. The caller surfaces these as private notifications.
type Skip struct {
	PlayerID string
	ItemID   string
	Quantity int
}

// Report is the outcome of one distribution pass.
type Report struct {
	Awards  []Award
	Skipped []Skip
}

// RollDrops walks each defeated enemy's drop table. For every row it draws a
// uniform integer in [0, 100]; the row drops when the draw is at or under the
// rate. Rows emit independent stacks, in table order.
func RollDrops(tables [][]catalog.DropRow, src dice.Source) []Stack {
	var out []Stack
	for _, rows := range tables {
		for _, row := range rows {
			if row.Quantity <= 0 {
				continue
			}
			if src.Intn(101) <= row.DropRate {
				out = append(out, Stack{ItemID: row.ItemID, Quantity: row.Quantity})
			}
		}
	}
	return out
}

// Distributor splits emitted stacks across recipients and writes the grants
// through an Inventory.
type Distributor struct {
	inv Inventory
	log *zap.Logger
}

// NewDistributor wires a distributor to its inventory surface.
func NewDistributor(inv Inventory, log *zap.Logger) *Distributor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Distributor{inv: inv, log: log}
}

// Distribute splits each stack equally across the recipients: everyone gets
// floor(qty/n), and the remainder goes to the leader (or the first-listed
// recipient when no leader flag is set). A recipient whose inventory add fails
// with ErrInventoryFull is skipped for that stack and reported; any other
// inventory error aborts the pass.
//
// Precondition: recipients is non-empty.
// Postcondition: for every stack, awarded + skipped quantity equals the stack
// quantity.
func (d *Distributor) Distribute(ctx context.Context, encounterID string, stacks []Stack, recipients []Recipient) (Report, error) {
	var rep Report
	if len(recipients) == 0 {
		return rep, errors.New("no recipients for loot distribution")
	}

	leader := recipients[0].PlayerID
	for _, r := range recipients {
		if r.IsLeader {
			leader = r.PlayerID
			break
		}
	}

	n := len(recipients)
	for _, stack := range stacks {
		perPerson := stack.Quantity / n
		remainder := stack.Quantity % n
		for _, r := range recipients {
			share := perPerson
			if r.PlayerID == leader {
				share += remainder
			}
			if share == 0 {
				continue
			}
			err := d.inv.AddItem(ctx, r.PlayerID, stack.ItemID, share)
			switch {
			case errors.Is(err, ErrInventoryFull):
				d.log.Info("loot share skipped, inventory full",
					zap.String("encounter_id", encounterID),
					zap.String("player_id", r.PlayerID),
					zap.String("item_id", stack.ItemID),
					zap.Int("quantity", share))
				rep.Skipped = append(rep.Skipped, Skip{PlayerID: r.PlayerID, ItemID: stack.ItemID, Quantity: share})
			case err != nil:
				return rep, err
			default:
				rep.Awards = append(rep.Awards, Award{PlayerID: r.PlayerID, ItemID: stack.ItemID, Quantity: share})
			}
		}
	}
	return rep, nil
}
