package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PlayerRepository is the narrow write surface back into persistent player
// data. The battle engine only writes on full-party defeat; everything else
// it reads through the stat view.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// PersistDefeat writes health = 0 to the player's persistent record.
//
// Postcondition: Returns nil on success, ErrPlayerNotFound if no row updated.
func (r *PlayerRepository) PersistDefeat(ctx context.Context, playerID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET current_health = 0, updated_at = NOW()
		WHERE id = $1`,
		playerID,
	)
	if err != nil {
		return fmt.Errorf("persisting defeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}
