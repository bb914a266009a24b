// Package gameserver adapts inbound chat messages to battle engine actions.
// The chat platform integration delivers one Message per player line; the
// Dispatcher parses it and routes to the combat handler. The platform's
// message id doubles as the action correlation id, so a redelivered message
// replays as a no-op instead of acting twice.
package gameserver

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/combat"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
)

// ErrUnknownCommand is returned when the first word of a line is not a battle
// command. Callers typically ignore it: most chat traffic is not for us.
var ErrUnknownCommand = errors.New("unknown command")

// ErrBadArguments is returned when a recognized command has malformed
// arguments.
var ErrBadArguments = errors.New("bad arguments")

// Message is one inbound chat line with its platform bindings resolved: the
// authenticated identity, the acting character, and the location the channel
// is bound to.
type Message struct {
	IdentityID string
	PlayerID   string
	LocationID string
	ChannelID  string
	MessageID  string
	Line       string
}

// ActionHandler is the surface of the combat handler the dispatcher drives.
type ActionHandler interface {
	StartHunt(ctx context.Context, req combat.HuntRequest) (*encounter.Encounter, error)
	Attack(ctx context.Context, act combat.AttackAction) error
	Ability(ctx context.Context, act combat.AbilityAction) error
	Flee(ctx context.Context, act combat.FleeAction) error
}

// Dispatcher parses chat lines into combat handler calls.
type Dispatcher struct {
	handler ActionHandler
	log     *zap.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: handler must be non-nil; a nil logger falls back to a no-op.
func NewDispatcher(handler ActionHandler, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{handler: handler, log: logger}
}

// HandleMessage routes one chat line.
//
//	hunt [ally ...]     start a hunt; allies make it a party hunt, sender leads
//	attack [slot]       auto-attack; slot optional with a single enemy
//	cast <ability> [slot]
//	flee
//
// Empty lines return nil. Non-command lines return ErrUnknownCommand.
// Postcondition: Errors from the combat handler pass through unwrapped so
// callers can errors.Is against the combat sentinels.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Message) error {
	fields := strings.Fields(msg.Line)
	if len(fields) == 0 {
		return nil
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	act := combat.Action{
		IdentityID: msg.IdentityID,
		ActorID:    msg.PlayerID,
		ActionID:   msg.MessageID,
	}

	switch command {
	case "hunt":
		kind := encounter.KindSolo
		party := append([]string{msg.PlayerID}, args...)
		if len(args) > 0 {
			kind = encounter.KindParty
		}
		_, err := d.handler.StartHunt(ctx, combat.HuntRequest{
			Kind:           kind,
			LocationID:     msg.LocationID,
			ChannelBinding: msg.ChannelID,
			MessageBinding: msg.MessageID,
			PartyIDs:       party,
		})
		return err

	case "attack":
		var slot string
		if len(args) > 0 {
			slot = args[0]
		}
		return d.handler.Attack(ctx, combat.AttackAction{Action: act, EnemySlot: slot})

	case "cast":
		if len(args) == 0 {
			return ErrBadArguments
		}
		var slot string
		if len(args) > 1 {
			slot = args[1]
		}
		return d.handler.Ability(ctx, combat.AbilityAction{
			Action:    act,
			AbilityID: args[0],
			EnemySlot: slot,
		})

	case "flee":
		return d.handler.Flee(ctx, combat.FleeAction{Action: act})

	default:
		d.log.Debug("ignoring non-battle line",
			zap.String("player", msg.PlayerID),
			zap.String("command", command),
		)
		return ErrUnknownCommand
	}
}
