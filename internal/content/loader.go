// Package content loads YAML catalog packs: items, abilities, enemy templates,
// and drop tables. Packs are authored content; the seed command validates and
// writes them into the catalog tables, and tests use them as in-memory
// fixtures.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// yamlPackFile is the top-level YAML structure for content pack files.
type yamlPackFile struct {
	Items     []yamlItem    `yaml:"items"`
	Abilities []yamlAbility `yaml:"abilities"`
	Enemies   []yamlEnemy   `yaml:"enemies"`
}

type yamlItem struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type"`
	Slot         string            `yaml:"slot"`
	Rarity       string            `yaml:"rarity"`
	Damage       map[string]string `yaml:"damage"`
	LegacyDamage int               `yaml:"legacy_damage"`
}

type yamlAbility struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Element      string            `yaml:"element"`
	ManaCost     int               `yaml:"mana_cost"`
	Damage       map[string]string `yaml:"damage"`
	Status       *yamlStatus       `yaml:"status"`
	LegacyDamage int               `yaml:"legacy_damage"`
}

type yamlStatus struct {
	Attribute string `yaml:"attribute"`
	// Duration is a Go duration string, e.g. "9s".
	Duration string `yaml:"duration"`
	Value    int    `yaml:"value"`
}

type yamlEnemy struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Location    string            `yaml:"location"`
	Health      int               `yaml:"health"`
	IsBoss      bool              `yaml:"is_boss"`
	HookScript  string            `yaml:"hook_script"`
	Attributes  map[string]int    `yaml:"attributes"`
	Resistances map[string]int    `yaml:"resistances"`
	Damage      map[string]string `yaml:"damage"`
	Drops       []yamlDrop        `yaml:"drops"`
}

type yamlDrop struct {
	Item     string `yaml:"item"`
	Rate     int    `yaml:"rate"`
	Quantity int    `yaml:"quantity"`
}

// Pack is a validated set of catalog records. Drops is keyed by enemy id.
type Pack struct {
	Items     []catalog.Item
	Abilities []catalog.Ability
	Enemies   []catalog.Enemy
	Drops     map[string][]catalog.DropRow
}

// LoadPackFromFile reads and validates a single content pack YAML file.
//
// Precondition: path must point to a valid YAML pack file.
// Postcondition: Returns a validated Pack or a non-nil error.
func LoadPackFromFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file %s: %w", path, err)
	}
	return LoadPackFromBytes(data)
}

// parsePackFile reads and converts one file without running Validate, so
// LoadDir can validate cross-file references on the merged pack instead.
func parsePackFile(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file %s: %w", path, err)
	}
	var file yamlPackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing content YAML: %w", err)
	}
	return convertYAMLPack(file)
}

// LoadPackFromBytes parses and validates a pack from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the pack schema.
// Postcondition: Returns a validated Pack or a non-nil error.
func LoadPackFromBytes(data []byte) (*Pack, error) {
	var file yamlPackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing content YAML: %w", err)
	}

	pack, err := convertYAMLPack(file)
	if err != nil {
		return nil, err
	}
	if err := pack.Validate(); err != nil {
		return nil, fmt.Errorf("validating content: %w", err)
	}
	return pack, nil
}

// LoadDir loads and merges all YAML files in a directory into one pack.
// Record ids must be unique across the whole directory. Validation runs on
// the merged pack, so drops may reference items defined in a sibling file.
//
// Precondition: dir must be a valid directory path containing at least one
// pack file.
// Postcondition: Returns one merged, validated Pack or the first error.
func LoadDir(dir string) (*Pack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	merged := &Pack{Drops: make(map[string][]catalog.DropRow)}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		pack, err := parsePackFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading content from %s: %w", name, err)
		}
		merged.Items = append(merged.Items, pack.Items...)
		merged.Abilities = append(merged.Abilities, pack.Abilities...)
		merged.Enemies = append(merged.Enemies, pack.Enemies...)
		for id, rows := range pack.Drops {
			merged.Drops[id] = rows
		}
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no content files found in %s", dir)
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("validating merged content: %w", err)
	}
	return merged, nil
}

// convertYAMLPack converts the parsed YAML structures into catalog types.
// Dice expressions are parsed here so validation reports the offending record.
func convertYAMLPack(file yamlPackFile) (*Pack, error) {
	pack := &Pack{Drops: make(map[string][]catalog.DropRow)}

	for _, yi := range file.Items {
		profile, err := convertProfile(yi.Damage)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", yi.ID, err)
		}
		pack.Items = append(pack.Items, catalog.Item{
			ID:           yi.ID,
			Name:         yi.Name,
			Type:         yi.Type,
			Slot:         yi.Slot,
			Rarity:       yi.Rarity,
			Profile:      profile,
			LegacyDamage: yi.LegacyDamage,
		})
	}

	for _, ya := range file.Abilities {
		profile, err := convertProfile(ya.Damage)
		if err != nil {
			return nil, fmt.Errorf("ability %q: %w", ya.ID, err)
		}
		ability := catalog.Ability{
			ID:           ya.ID,
			Name:         ya.Name,
			Element:      damage.Type(ya.Element),
			ManaCost:     ya.ManaCost,
			Profile:      profile,
			LegacyDamage: ya.LegacyDamage,
		}
		if ya.Status != nil {
			duration, err := time.ParseDuration(ya.Status.Duration)
			if err != nil {
				return nil, fmt.Errorf("ability %q: status duration: %w", ya.ID, err)
			}
			ability.Status = &catalog.StatusEffect{
				Attribute: ya.Status.Attribute,
				Duration:  duration,
				Value:     ya.Status.Value,
			}
		}
		pack.Abilities = append(pack.Abilities, ability)
	}

	for _, ye := range file.Enemies {
		profile, err := convertProfile(ye.Damage)
		if err != nil {
			return nil, fmt.Errorf("enemy %q: %w", ye.ID, err)
		}
		var attrs stats.Attributes
		for name, value := range ye.Attributes {
			if !stats.IsAttribute(name) {
				return nil, fmt.Errorf("enemy %q: unknown attribute %q", ye.ID, name)
			}
			attrs = attrs.Add(name, value)
		}
		pack.Enemies = append(pack.Enemies, catalog.Enemy{
			ID:          ye.ID,
			Name:        ye.Name,
			Health:      ye.Health,
			Attributes:  attrs,
			Resistances: stats.Resistances(ye.Resistances),
			Profile:     profile,
			LocationID:  ye.Location,
			IsBoss:      ye.IsBoss,
			HookScript:  ye.HookScript,
		})
		for _, yd := range ye.Drops {
			pack.Drops[ye.ID] = append(pack.Drops[ye.ID], catalog.DropRow{
				ItemID:   yd.Item,
				DropRate: yd.Rate,
				Quantity: yd.Quantity,
			})
		}
	}

	return pack, nil
}

// convertProfile parses a YAML damage map ("fire: 1d4+2") into a Profile.
func convertProfile(m map[string]string) (damage.Profile, error) {
	if len(m) == 0 {
		return nil, nil
	}
	profile := make(damage.Profile, len(m))
	for typeName, exprStr := range m {
		t := damage.Type(typeName)
		if !damage.Valid(t) {
			return nil, fmt.Errorf("unknown damage type %q", typeName)
		}
		expr, err := dice.Parse(exprStr)
		if err != nil {
			return nil, fmt.Errorf("damage %q: %w", typeName, err)
		}
		profile[t] = expr
	}
	return profile, nil
}
