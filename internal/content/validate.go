package content

import (
	"fmt"
	"strings"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// Validate checks the structural invariants of a pack, aggregating every
// violation into a single error.
//
// Postcondition: A nil return guarantees unique ids, valid element and status
// attributes, drop rates in [0, 100], positive drop quantities, and drop item
// references that resolve within the pack.
func (p *Pack) Validate() error {
	var errs []string

	itemIDs := make(map[string]bool, len(p.Items))
	for _, item := range p.Items {
		if item.ID == "" {
			errs = append(errs, "item with empty id")
			continue
		}
		if itemIDs[item.ID] {
			errs = append(errs, fmt.Sprintf("duplicate item id %q", item.ID))
		}
		itemIDs[item.ID] = true
		if item.Name == "" {
			errs = append(errs, fmt.Sprintf("item %q: empty name", item.ID))
		}
	}

	abilityIDs := make(map[string]bool, len(p.Abilities))
	for _, ability := range p.Abilities {
		if ability.ID == "" {
			errs = append(errs, "ability with empty id")
			continue
		}
		if abilityIDs[ability.ID] {
			errs = append(errs, fmt.Sprintf("duplicate ability id %q", ability.ID))
		}
		abilityIDs[ability.ID] = true
		if !damage.Valid(ability.Element) {
			errs = append(errs, fmt.Sprintf("ability %q: unknown element %q", ability.ID, ability.Element))
		}
		if ability.ManaCost < 0 {
			errs = append(errs, fmt.Sprintf("ability %q: negative mana cost", ability.ID))
		}
		if ability.Status != nil {
			if !validStatusAttribute(ability.Status.Attribute) {
				errs = append(errs, fmt.Sprintf("ability %q: unknown status attribute %q", ability.ID, ability.Status.Attribute))
			}
			if ability.Status.Duration <= 0 {
				errs = append(errs, fmt.Sprintf("ability %q: status duration must be positive", ability.ID))
			}
		}
	}

	enemyIDs := make(map[string]bool, len(p.Enemies))
	for _, enemy := range p.Enemies {
		if enemy.ID == "" {
			errs = append(errs, "enemy with empty id")
			continue
		}
		if enemyIDs[enemy.ID] {
			errs = append(errs, fmt.Sprintf("duplicate enemy id %q", enemy.ID))
		}
		enemyIDs[enemy.ID] = true
		if enemy.Health < 1 {
			errs = append(errs, fmt.Sprintf("enemy %q: health must be >= 1", enemy.ID))
		}
		if enemy.LocationID == "" {
			errs = append(errs, fmt.Sprintf("enemy %q: empty location", enemy.ID))
		}
		for resist := range enemy.Resistances {
			if !damage.Valid(damage.Type(resist)) {
				errs = append(errs, fmt.Sprintf("enemy %q: unknown resistance type %q", enemy.ID, resist))
			}
		}
	}

	for enemyID, rows := range p.Drops {
		if !enemyIDs[enemyID] {
			errs = append(errs, fmt.Sprintf("drop table for unknown enemy %q", enemyID))
		}
		for _, row := range rows {
			if !itemIDs[row.ItemID] {
				errs = append(errs, fmt.Sprintf("enemy %q: drop references unknown item %q", enemyID, row.ItemID))
			}
			if row.DropRate < 0 || row.DropRate > 100 {
				errs = append(errs, fmt.Sprintf("enemy %q: drop rate for %q must be 0-100, got %d", enemyID, row.ItemID, row.DropRate))
			}
			if row.Quantity < 1 {
				errs = append(errs, fmt.Sprintf("enemy %q: drop quantity for %q must be >= 1", enemyID, row.ItemID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validStatusAttribute accepts the effect ledger namespaces: plain attribute
// names, dot_<type>, damage_bonus_<type>, and damage_reduction_<type>.
func validStatusAttribute(attribute string) bool {
	if stats.IsAttribute(attribute) {
		return true
	}
	if t, ok := effect.DoTType(attribute); ok {
		return damage.Valid(damage.Type(t))
	}
	if t, ok := effect.DamageBonusType(attribute); ok {
		return damage.Valid(damage.Type(t))
	}
	if t, ok := effect.DamageReductionType(attribute); ok {
		return damage.Valid(damage.Type(t))
	}
	return false
}
