package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
)

// EffectLedger is the persistent per-player effect ledger backed by the
// temporary_effects table. It implements effect.Ledger; the per-encounter
// ledger stays in memory on the Encounter record.
//
// Rows are ordered by an insertion sequence so modifier application order
// matches the in-memory ledger's insertion-order guarantee.
type EffectLedger struct {
	db *pgxpool.Pool
}

// NewEffectLedger creates an EffectLedger backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEffectLedger(db *pgxpool.Pool) *EffectLedger {
	return &EffectLedger{db: db}
}

// Apply inserts a row. It never merges with an existing row; same-attribute
// rows stack additively on read.
func (l *EffectLedger) Apply(ctx context.Context, e effect.Effect) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO temporary_effects
			(id, encounter_id, target_kind, target_id, attribute, value, duration_ms, start_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.EncounterID, string(e.Target.Kind), e.Target.ID,
		e.Attribute, e.Value, e.Duration.Milliseconds(), e.Start,
	)
	if err != nil {
		return fmt.Errorf("inserting effect: %w", err)
	}
	return nil
}

// ListActive returns the target's unexpired rows in insertion order.
func (l *EffectLedger) ListActive(ctx context.Context, target effect.Target) ([]effect.Effect, error) {
	rows, err := l.db.Query(ctx, `
		SELECT id, encounter_id, attribute, value, duration_ms, start_at
		FROM temporary_effects
		WHERE target_kind = $1 AND target_id = $2
		  AND start_at + duration_ms * INTERVAL '1 millisecond' > NOW()
		ORDER BY seq`,
		string(target.Kind), target.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active effects: %w", err)
	}
	defer rows.Close()

	var out []effect.Effect
	for rows.Next() {
		var (
			e          effect.Effect
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.EncounterID, &e.Attribute, &e.Value, &durationMS, &e.Start); err != nil {
			return nil, fmt.Errorf("scanning effect row: %w", err)
		}
		e.Target = target
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeExpired deletes the target's expired rows.
//
// Postcondition: Every remaining row for target is still active.
func (l *EffectLedger) PurgeExpired(ctx context.Context, target effect.Target) error {
	_, err := l.db.Exec(ctx, `
		DELETE FROM temporary_effects
		WHERE target_kind = $1 AND target_id = $2
		  AND start_at + duration_ms * INTERVAL '1 millisecond' <= NOW()`,
		string(target.Kind), target.ID,
	)
	if err != nil {
		return fmt.Errorf("purging expired effects: %w", err)
	}
	return nil
}
