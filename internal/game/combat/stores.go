package combat

import (
	"context"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
)

// CatalogStore is the read surface over catalog data. Implementations sit on
// the Postgres repositories; tests use in-memory fakes. Call sites fetch per
// action — the engine holds no catalog cache.
type CatalogStore interface {
	// PlayerStats returns the pre-aggregated stat view for a player.
	PlayerStats(ctx context.Context, playerID string) (catalog.PlayerStats, error)
	// EquippedWeapons returns the player's equipped combat-slot items.
	EquippedWeapons(ctx context.Context, playerID string) ([]catalog.Item, error)
	// Ability returns one ability row.
	Ability(ctx context.Context, abilityID string) (catalog.Ability, error)
	// AbilityEquipped reports whether the player has the ability equipped.
	AbilityEquipped(ctx context.Context, playerID, abilityID string) (bool, error)
	// EnemiesAt returns the enemy templates bound to a location.
	EnemiesAt(ctx context.Context, locationID string) ([]catalog.Enemy, error)
	// DropTable returns an enemy template's drop rows.
	DropTable(ctx context.Context, enemyID string) ([]catalog.DropRow, error)
}

// EncounterStore persists encounter state write-through: the in-memory record
// is authoritative, the store mirrors every committed mutation.
type EncounterStore interface {
	// Insert writes a freshly created encounter.
	Insert(ctx context.Context, enc *encounter.Encounter) error
	// Sync mirrors the current health/mana/turn/phase state.
	Sync(ctx context.Context, enc *encounter.Encounter) error
	// MarkEnded records the terminal state and end reason.
	MarkEnded(ctx context.Context, enc *encounter.Encounter) error
}

// PlayerStore is the narrow write surface back into persistent player data.
// The engine only touches it on full-party defeat.
type PlayerStore interface {
	// PersistDefeat writes health = 0 to the player's persistent record.
	PersistDefeat(ctx context.Context, playerID string) error
}

// FlavorHooks runs optional per-enemy script hooks. Implementations are
// best-effort: a missing script or a script failure yields ("", false) and the
// battle carries on without the flavor line.
type FlavorHooks interface {
	EncounterStart(scriptID, enemyName string) (string, bool)
	EnemyDefeated(scriptID, enemyName string) (string, bool)
}
