package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
)

// EncounterRepository mirrors in-memory encounter records into the encounters
// tables. The in-memory record is authoritative; these writes exist for audit
// and crash recovery, so every method commits the full current state.
type EncounterRepository struct {
	db *pgxpool.Pool
}

// NewEncounterRepository creates an EncounterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEncounterRepository(db *pgxpool.Pool) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// Insert writes a freshly created encounter with its participant and enemy
// rosters in one transaction.
//
// Precondition: The caller holds enc's action lock.
// Postcondition: All three tables contain the encounter, or nothing does.
func (r *EncounterRepository) Insert(ctx context.Context, enc *encounter.Encounter) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning encounter insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO encounters
			(id, kind, location_id, max_players, channel_binding, message_binding,
			 current_turn, turn_number, phase, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		enc.ID, string(enc.Kind), enc.LocationID, enc.MaxPlayers,
		enc.ChannelBinding, enc.MessageBinding,
		enc.CurrentTurn, enc.TurnNumber, string(enc.Phase), enc.Active, enc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting encounter: %w", err)
	}

	for i, p := range enc.Participants {
		_, err = tx.Exec(ctx, `
			INSERT INTO encounter_participants
				(encounter_id, player_id, is_leader, health, max_health, mana, max_mana, roster_index)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			enc.ID, p.PlayerID, p.IsLeader, p.Health, p.MaxHealth, p.Mana, p.MaxMana, i,
		)
		if err != nil {
			return fmt.Errorf("inserting participant %s: %w", p.PlayerID, err)
		}
	}

	for _, e := range enc.Enemies {
		_, err = tx.Exec(ctx, `
			INSERT INTO encounter_enemies
				(encounter_id, slot_id, enemy_id, health, max_health, is_boss)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			enc.ID, e.SlotID, e.Template.ID, e.Health, e.MaxHealth, e.IsBoss,
		)
		if err != nil {
			return fmt.Errorf("inserting enemy slot %s: %w", e.SlotID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing encounter insert: %w", err)
	}
	return nil
}

// Sync mirrors the current turn pointer, phase, and all health/mana values.
// Participants who fled are deleted from the roster table.
//
// Precondition: The caller holds enc's action lock.
func (r *EncounterRepository) Sync(ctx context.Context, enc *encounter.Encounter) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning encounter sync: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE encounters
		SET current_turn = $2, turn_number = $3, phase = $4, active = $5, updated_at = NOW()
		WHERE id = $1`,
		enc.ID, enc.CurrentTurn, enc.TurnNumber, string(enc.Phase), enc.Active,
	)
	if err != nil {
		return fmt.Errorf("syncing encounter: %w", err)
	}

	remaining := make([]string, 0, len(enc.Participants))
	for _, p := range enc.Participants {
		remaining = append(remaining, p.PlayerID)
		_, err = tx.Exec(ctx, `
			UPDATE encounter_participants
			SET health = $3, mana = $4
			WHERE encounter_id = $1 AND player_id = $2`,
			enc.ID, p.PlayerID, p.Health, p.Mana,
		)
		if err != nil {
			return fmt.Errorf("syncing participant %s: %w", p.PlayerID, err)
		}
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM encounter_participants
		WHERE encounter_id = $1 AND player_id != ALL($2)`,
		enc.ID, remaining,
	)
	if err != nil {
		return fmt.Errorf("pruning fled participants: %w", err)
	}

	for _, e := range enc.Enemies {
		_, err = tx.Exec(ctx, `
			UPDATE encounter_enemies
			SET health = $3
			WHERE encounter_id = $1 AND slot_id = $2`,
			enc.ID, e.SlotID, e.Health,
		)
		if err != nil {
			return fmt.Errorf("syncing enemy slot %s: %w", e.SlotID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing encounter sync: %w", err)
	}
	return nil
}

// MarkEnded records the terminal state and end reason.
//
// Precondition: enc.Active is false and enc.EndReason is set.
func (r *EncounterRepository) MarkEnded(ctx context.Context, enc *encounter.Encounter) error {
	_, err := r.db.Exec(ctx, `
		UPDATE encounters
		SET active = FALSE, phase = $2, end_reason = $3, ended_at = NOW(), updated_at = NOW()
		WHERE id = $1`,
		enc.ID, string(encounter.PhaseEnded), string(enc.EndReason),
	)
	if err != nil {
		return fmt.Errorf("marking encounter ended: %w", err)
	}
	return nil
}

// LoadActiveIDs returns the ids of encounters still marked active, for
// startup reconciliation: the engine marks them corrupted since in-memory
// state did not survive the restart.
func (r *EncounterRepository) LoadActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM encounters WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("listing active encounters: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning encounter id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AbandonActive marks every active encounter corrupted. Called once at boot,
// since in-memory encounter state does not survive a restart.
//
// Postcondition: No encounters row has active = TRUE.
func (r *EncounterRepository) AbandonActive(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE encounters
		SET active = FALSE, phase = $1, end_reason = $2, ended_at = NOW(), updated_at = NOW()
		WHERE active`,
		string(encounter.PhaseEnded), string(encounter.EndCorrupted),
	)
	if err != nil {
		return 0, fmt.Errorf("abandoning active encounters: %w", err)
	}
	return tag.RowsAffected(), nil
}

