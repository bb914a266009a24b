package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// ErrPlayerNotFound is returned when a player lookup yields no row.
var ErrPlayerNotFound = errors.New("player not found")

// ErrAbilityNotFound is returned when an ability lookup yields no row.
var ErrAbilityNotFound = errors.New("ability not found")

// attributeColumns is the attribute vector in scan order.
var attributeColumns = []string{
	"strength", "dexterity", "intelligence", "wisdom", "agility",
	"endurance", "charisma", "willpower", "luck",
}

// damageColumnList returns "piercing_damage, crushing_damage, ..." in the
// canonical type order so scans line up with damage.All().
func damageColumnList(prefix string) string {
	types := damage.All()
	cols := make([]string, len(types))
	for i, t := range types {
		cols[i] = prefix + string(t) + "_damage"
	}
	return strings.Join(cols, ", ")
}

// resistanceColumnList returns the resistance columns in canonical type order.
func resistanceColumnList(prefix string) string {
	types := damage.All()
	cols := make([]string, len(types))
	for i, t := range types {
		cols[i] = prefix + damage.ResistanceColumn(t)
	}
	return strings.Join(cols, ", ")
}

// profileFromColumns parses the nullable per-type dice expression columns into
// a Profile, in the same order damageColumnList emitted them.
func profileFromColumns(exprs []*string) (damage.Profile, error) {
	profile := damage.Profile{}
	for i, t := range damage.All() {
		if exprs[i] == nil || *exprs[i] == "" {
			continue
		}
		expr, err := dice.Parse(*exprs[i])
		if err != nil {
			return nil, fmt.Errorf("damage column %s: %w", t, err)
		}
		profile[t] = expr
	}
	if len(profile) == 0 {
		return nil, nil
	}
	return profile, nil
}

// CatalogRepository is the read-side repository over catalog tables and the
// pre-aggregated player stat view.
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a CatalogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// PlayerStats returns the pre-aggregated stat view for a player: base
// attributes and resistances from the players row, total_* columns from the
// view when equipment or passive effects produced an aggregate.
//
// Postcondition: Returns the view row or ErrPlayerNotFound.
func (r *CatalogRepository) PlayerStats(ctx context.Context, playerID string) (catalog.PlayerStats, error) {
	types := damage.All()
	query := fmt.Sprintf(`
		SELECT player_id, %s, %s, %s, %s,
		       max_health, max_mana, current_health, current_mana
		FROM player_stats_view WHERE player_id = $1`,
		strings.Join(attributeColumns, ", "),
		"total_"+strings.Join(attributeColumns, ", total_"),
		resistanceColumnList(""),
		resistanceColumnList("total_"),
	)

	var (
		out      catalog.PlayerStats
		base     = make([]int, len(attributeColumns))
		totals   = make([]*int, len(attributeColumns))
		baseRes  = make([]int, len(types))
		totalRes = make([]*int, len(types))
	)

	dests := []any{&out.PlayerID}
	for i := range base {
		dests = append(dests, &base[i])
	}
	for i := range totals {
		dests = append(dests, &totals[i])
	}
	for i := range baseRes {
		dests = append(dests, &baseRes[i])
	}
	for i := range totalRes {
		dests = append(dests, &totalRes[i])
	}
	dests = append(dests, &out.MaxHealth, &out.MaxMana, &out.CurrentHealth, &out.CurrentMana)

	if err := r.db.QueryRow(ctx, query, playerID).Scan(dests...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.PlayerStats{}, ErrPlayerNotFound
		}
		return catalog.PlayerStats{}, fmt.Errorf("querying player stats: %w", err)
	}

	for i, name := range attributeColumns {
		out.Base = out.Base.Add(name, base[i])
	}
	if totals[0] != nil {
		var total stats.Attributes
		for i, name := range attributeColumns {
			if totals[i] != nil {
				total = total.Add(name, *totals[i])
			}
		}
		out.Total = &total
	}

	out.BaseResistances = make(stats.Resistances, len(types))
	for i, t := range types {
		out.BaseResistances[string(t)] = baseRes[i]
	}
	totalResistances := make(stats.Resistances)
	for i, t := range types {
		if totalRes[i] != nil {
			totalResistances[string(t)] = *totalRes[i]
		}
	}
	if len(totalResistances) > 0 {
		out.TotalResistances = totalResistances
	}

	return out, nil
}

// EquippedWeapons returns the player's equipped combat-slot items in slot
// priority order (1H, 2H, off-hand), so profile merging is deterministic.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CatalogRepository) EquippedWeapons(ctx context.Context, playerID string) ([]catalog.Item, error) {
	query := fmt.Sprintf(`
		SELECT i.id, i.name, i.type, e.slot, i.rarity, i.legacy_damage, %s
		FROM player_equipment e
		JOIN items i ON i.id = e.item_id
		WHERE e.player_id = $1 AND e.slot IN ($2, $3, $4)
		ORDER BY array_position(ARRAY[$2, $3, $4], e.slot)`,
		damageColumnList("i."),
	)

	rows, err := r.db.Query(ctx, query, playerID,
		catalog.SlotPrimary1H, catalog.SlotPrimary2H, catalog.SlotOffHand)
	if err != nil {
		return nil, fmt.Errorf("listing equipped weapons: %w", err)
	}
	defer rows.Close()

	items := make([]catalog.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(rows pgx.Rows) (catalog.Item, error) {
	var item catalog.Item
	exprs := make([]*string, len(damage.All()))
	dests := []any{&item.ID, &item.Name, &item.Type, &item.Slot, &item.Rarity, &item.LegacyDamage}
	for i := range exprs {
		dests = append(dests, &exprs[i])
	}
	if err := rows.Scan(dests...); err != nil {
		return catalog.Item{}, fmt.Errorf("scanning item row: %w", err)
	}
	profile, err := profileFromColumns(exprs)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("item %q: %w", item.ID, err)
	}
	item.Profile = profile
	return item, nil
}

// Ability returns one ability row.
//
// Postcondition: Returns the Ability or ErrAbilityNotFound.
func (r *CatalogRepository) Ability(ctx context.Context, abilityID string) (catalog.Ability, error) {
	query := fmt.Sprintf(`
		SELECT id, name, element, mana_cost, legacy_damage,
		       status_attribute, status_duration_ms, status_value, %s
		FROM abilities WHERE id = $1`,
		damageColumnList(""),
	)

	var (
		ability        catalog.Ability
		element        string
		statusAttr     *string
		statusDuration *int64
		statusValue    *int
	)
	exprs := make([]*string, len(damage.All()))
	dests := []any{
		&ability.ID, &ability.Name, &element, &ability.ManaCost, &ability.LegacyDamage,
		&statusAttr, &statusDuration, &statusValue,
	}
	for i := range exprs {
		dests = append(dests, &exprs[i])
	}

	if err := r.db.QueryRow(ctx, query, abilityID).Scan(dests...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Ability{}, ErrAbilityNotFound
		}
		return catalog.Ability{}, fmt.Errorf("querying ability: %w", err)
	}

	ability.Element = damage.Type(element)
	profile, err := profileFromColumns(exprs)
	if err != nil {
		return catalog.Ability{}, fmt.Errorf("ability %q: %w", ability.ID, err)
	}
	ability.Profile = profile

	if statusAttr != nil {
		status := &catalog.StatusEffect{Attribute: *statusAttr}
		if statusDuration != nil {
			status.Duration = time.Duration(*statusDuration) * time.Millisecond
		}
		if statusValue != nil {
			status.Value = *statusValue
		}
		ability.Status = status
	}

	return ability, nil
}

// AbilityEquipped reports whether the player has the ability equipped.
func (r *CatalogRepository) AbilityEquipped(ctx context.Context, playerID, abilityID string) (bool, error) {
	var equipped bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM player_abilities
			WHERE player_id = $1 AND ability_id = $2 AND equipped
		)`,
		playerID, abilityID,
	).Scan(&equipped)
	if err != nil {
		return false, fmt.Errorf("checking equipped ability: %w", err)
	}
	return equipped, nil
}

// EnemiesAt returns the enemy templates bound to a location.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CatalogRepository) EnemiesAt(ctx context.Context, locationID string) ([]catalog.Enemy, error) {
	query := fmt.Sprintf(`
		SELECT id, name, health, location_id, is_boss, hook_script, %s, %s, %s
		FROM enemies WHERE location_id = $1 ORDER BY id`,
		strings.Join(attributeColumns, ", "),
		resistanceColumnList(""),
		damageColumnList(""),
	)

	rows, err := r.db.Query(ctx, query, locationID)
	if err != nil {
		return nil, fmt.Errorf("listing enemies: %w", err)
	}
	defer rows.Close()

	types := damage.All()
	enemies := make([]catalog.Enemy, 0)
	for rows.Next() {
		var enemy catalog.Enemy
		attrs := make([]int, len(attributeColumns))
		resists := make([]int, len(types))
		exprs := make([]*string, len(types))

		dests := []any{
			&enemy.ID, &enemy.Name, &enemy.Health, &enemy.LocationID,
			&enemy.IsBoss, &enemy.HookScript,
		}
		for i := range attrs {
			dests = append(dests, &attrs[i])
		}
		for i := range resists {
			dests = append(dests, &resists[i])
		}
		for i := range exprs {
			dests = append(dests, &exprs[i])
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scanning enemy row: %w", err)
		}

		for i, name := range attributeColumns {
			enemy.Attributes = enemy.Attributes.Add(name, attrs[i])
		}
		enemy.Resistances = make(stats.Resistances, len(types))
		for i, t := range types {
			enemy.Resistances[string(t)] = resists[i]
		}
		profile, err := profileFromColumns(exprs)
		if err != nil {
			return nil, fmt.Errorf("enemy %q: %w", enemy.ID, err)
		}
		enemy.Profile = profile
		enemies = append(enemies, enemy)
	}
	return enemies, rows.Err()
}

// DropTable returns an enemy template's drop rows.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CatalogRepository) DropTable(ctx context.Context, enemyID string) ([]catalog.DropRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, drop_rate, quantity
		FROM enemy_drops WHERE enemy_id = $1 ORDER BY item_id`,
		enemyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing drop table: %w", err)
	}
	defer rows.Close()

	drops := make([]catalog.DropRow, 0)
	for rows.Next() {
		var row catalog.DropRow
		if err := rows.Scan(&row.ItemID, &row.DropRate, &row.Quantity); err != nil {
			return nil, fmt.Errorf("scanning drop row: %w", err)
		}
		drops = append(drops, row)
	}
	return drops, rows.Err()
}
