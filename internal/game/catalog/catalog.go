// Package catalog defines the read-side record types for catalog data:
// items, abilities, enemy templates, drop tables, and the pre-aggregated
// player stat view. The battle engine reads these; it never writes them.
package catalog

import (
	"time"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// Combat equipment slots. Off-hand tool slots are excluded from weapon
// profile assembly.
const (
	SlotPrimary1H = "1H_weapon"
	SlotPrimary2H = "2H_weapon"
	SlotOffHand   = "left_hand"
)

// Item is a catalog item row. Only the fields the battle engine consumes are
// modeled; shop and crafting columns live outside this subsystem.
type Item struct {
	ID     string
	Name   string
	Type   string // "weapon", "tool", "consumable", ...
	Slot   string // equip slot when equipped; empty otherwise
	Rarity string
	// Profile holds the per-type damage dice parsed from the
	// <damage_type>_damage columns. Empty for non-weapons and for legacy
	// items that predate dice damage.
	Profile damage.Profile
	// LegacyDamage is the flat magnitude used by the compatibility shim when
	// Profile is empty.
	LegacyDamage int
}

// IsCombatWeapon reports whether the item contributes to the attack profile:
// equipped in a combat slot and not a tool.
func (i Item) IsCombatWeapon() bool {
	if i.Type == "tool" {
		return false
	}
	switch i.Slot {
	case SlotPrimary1H, SlotPrimary2H, SlotOffHand:
		return true
	}
	return false
}

// StatusEffect is the optional rider an ability applies on hit.
type StatusEffect struct {
	Attribute string // effect ledger namespace, e.g. "dot_fire" or "strength"
	Duration  time.Duration
	Value     int
}

// Ability is a catalog ability row.
type Ability struct {
	ID       string
	Name     string
	Element  damage.Type // category tag; physical elements use dex/agility hit math, the rest int/willpower
	ManaCost int
	Profile  damage.Profile
	Status   *StatusEffect
	// LegacyDamage is the flat magnitude for abilities with no dice columns.
	LegacyDamage int
}

// Magical reports whether the ability uses the magical hit branch
// (intelligence vs willpower).
func (a Ability) Magical() bool {
	return !damage.Physical(a.Element)
}

// Enemy is a catalog enemy template. Instances inside an encounter reference
// the template by id and carry their own slot id and current health.
type Enemy struct {
	ID          string
	Name        string
	Health      int
	Attributes  stats.Attributes
	Resistances stats.Resistances
	// Profile is the enemy's attack profile; empty profiles fall back to a
	// flat crushing hit of Strength via the legacy shim.
	Profile    damage.Profile
	LocationID string
	IsBoss     bool
	// HookScript is an optional Lua flavor script id run on encounter events.
	HookScript string
}

// DropRow is one entry of an enemy's drop table.
type DropRow struct {
	ItemID   string
	DropRate int // percent chance in [0, 100]
	Quantity int
}

// PlayerStats is the pre-aggregated per-player view the engine consumes: base
// attributes plus the total_* columns combining base + equipment + passive
// effects. Total is nil when the view has no aggregated row for the player.
type PlayerStats struct {
	PlayerID         string
	Base             stats.Attributes
	Total            *stats.Attributes
	BaseResistances  stats.Resistances
	TotalResistances stats.Resistances
	MaxHealth        int
	MaxMana          int
	CurrentHealth    int
	CurrentMana      int
}

// Effective resolves the attribute vector with total-over-base precedence.
func (p PlayerStats) Effective() stats.Attributes {
	return stats.Effective(p.Base, p.Total)
}

// EffectiveResistances resolves the resistance vector the same way.
func (p PlayerStats) EffectiveResistances() stats.Resistances {
	return stats.EffectiveResistances(p.BaseResistances, p.TotalResistances)
}
