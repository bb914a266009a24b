package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/loot"
)

// InventoryRepository awards loot stacks into player_inventory. It implements
// loot.Inventory.
type InventoryRepository struct {
	db *pgxpool.Pool
}

// NewInventoryRepository creates an InventoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// AddItem adds quantity of itemID to the player's inventory, stacking onto an
// existing row when present. A new stack consumes one inventory slot; when the
// player has no free slot the award fails with loot.ErrInventoryFull.
//
// Precondition: quantity >= 1.
// Postcondition: Either the full quantity is awarded or nothing is.
func (r *InventoryRepository) AddItem(ctx context.Context, playerID, itemID string, quantity int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning inventory award: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the player row so concurrent awards serialize on the slot count.
	var capacity int
	err = tx.QueryRow(ctx, `
		SELECT inventory_capacity FROM players WHERE id = $1 FOR UPDATE`,
		playerID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("locking player row: %w", err)
	}

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM player_inventory
		WHERE player_id = $1 AND item_id = $2`,
		playerID, itemID,
	).Scan(&existing)
	switch {
	case err == nil:
		_, err = tx.Exec(ctx, `
			UPDATE player_inventory SET quantity = quantity + $3
			WHERE player_id = $1 AND item_id = $2`,
			playerID, itemID, quantity,
		)
		if err != nil {
			return fmt.Errorf("stacking item: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		var used int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM player_inventory WHERE player_id = $1`,
			playerID,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("counting inventory slots: %w", err)
		}
		if used >= capacity {
			return loot.ErrInventoryFull
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO player_inventory (player_id, item_id, quantity)
			VALUES ($1, $2, $3)`,
			playerID, itemID, quantity,
		)
		if err != nil {
			return fmt.Errorf("inserting item stack: %w", err)
		}
	default:
		return fmt.Errorf("querying item stack: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing inventory award: %w", err)
	}
	return nil
}
