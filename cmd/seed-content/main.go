// Package main provides the content seeder: it loads and validates YAML
// catalog packs and upserts them into the catalog tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/config"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/content"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	contentDir := flag.String("content", "", "content directory; defaults to game.content_dir from config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	dir := *contentDir
	if dir == "" {
		dir = cfg.Game.ContentDir
	}

	start := time.Now()
	pack, err := content.LoadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("loaded  %d item(s), %d abilit(ies), %d enem(ies) in %s\n",
		len(pack.Items), len(pack.Abilities), len(pack.Enemies),
		time.Since(start).Round(time.Millisecond))

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := seed(ctx, pool.DB(), pack); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded  %s in %s\n", dir, time.Since(start).Round(time.Millisecond))
}

// seed upserts the whole pack in one transaction, so a failed run leaves the
// catalog untouched.
func seed(ctx context.Context, db *pgxpool.Pool, pack *content.Pack) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range pack.Items {
		args := append([]any{item.ID, item.Name, item.Type, item.Slot, item.Rarity, item.LegacyDamage},
			profileArgs(item.Profile)...)
		if _, err := tx.Exec(ctx, upsertSQL("items",
			[]string{"id", "name", "type", "slot", "rarity", "legacy_damage"}), args...); err != nil {
			return fmt.Errorf("seeding item %q: %w", item.ID, err)
		}
	}

	for _, ability := range pack.Abilities {
		var statusAttr *string
		var statusDuration *int64
		var statusValue *int
		if ability.Status != nil {
			statusAttr = &ability.Status.Attribute
			ms := ability.Status.Duration.Milliseconds()
			statusDuration = &ms
			statusValue = &ability.Status.Value
		}
		args := append([]any{
			ability.ID, ability.Name, string(ability.Element), ability.ManaCost,
			ability.LegacyDamage, statusAttr, statusDuration, statusValue,
		}, profileArgs(ability.Profile)...)
		if _, err := tx.Exec(ctx, upsertSQL("abilities",
			[]string{"id", "name", "element", "mana_cost", "legacy_damage",
				"status_attribute", "status_duration_ms", "status_value"}), args...); err != nil {
			return fmt.Errorf("seeding ability %q: %w", ability.ID, err)
		}
	}

	for _, enemy := range pack.Enemies {
		args := []any{
			enemy.ID, enemy.Name, enemy.Health, enemy.LocationID, enemy.IsBoss, enemy.HookScript,
			enemy.Attributes.Strength, enemy.Attributes.Dexterity, enemy.Attributes.Intelligence,
			enemy.Attributes.Wisdom, enemy.Attributes.Agility, enemy.Attributes.Endurance,
			enemy.Attributes.Charisma, enemy.Attributes.Willpower, enemy.Attributes.Luck,
		}
		for _, t := range damage.All() {
			args = append(args, enemy.Resistances.Get(string(t)))
		}
		args = append(args, profileArgs(enemy.Profile)...)

		cols := []string{
			"id", "name", "health", "location_id", "is_boss", "hook_script",
			"strength", "dexterity", "intelligence", "wisdom", "agility",
			"endurance", "charisma", "willpower", "luck",
		}
		for _, t := range damage.All() {
			cols = append(cols, damage.ResistanceColumn(t))
		}
		if _, err := tx.Exec(ctx, upsertSQL("enemies", cols), args...); err != nil {
			return fmt.Errorf("seeding enemy %q: %w", enemy.ID, err)
		}
	}

	for enemyID, rows := range pack.Drops {
		if _, err := tx.Exec(ctx,
			`DELETE FROM enemy_drops WHERE enemy_id = $1`, enemyID); err != nil {
			return fmt.Errorf("clearing drops for %q: %w", enemyID, err)
		}
		for _, row := range rows {
			if _, err := tx.Exec(ctx, `
				INSERT INTO enemy_drops (enemy_id, item_id, drop_rate, quantity)
				VALUES ($1, $2, $3, $4)`,
				enemyID, row.ItemID, row.DropRate, row.Quantity); err != nil {
				return fmt.Errorf("seeding drop %q/%q: %w", enemyID, row.ItemID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}
	return nil
}

// upsertSQL builds an INSERT ... ON CONFLICT (id) DO UPDATE statement for the
// given leading columns plus the 13 per-type damage columns.
func upsertSQL(table string, cols []string) string {
	for _, t := range damage.All() {
		cols = append(cols, string(t)+"_damage")
	}
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// profileArgs returns the 13 per-type dice expression arguments in canonical
// order, nil for absent types.
func profileArgs(p damage.Profile) []any {
	args := make([]any, 0, len(damage.All()))
	for _, t := range damage.All() {
		if expr, ok := p[t]; ok && expr.Raw != "" {
			args = append(args, expr.Raw)
		} else {
			args = append(args, nil)
		}
	}
	return args
}
