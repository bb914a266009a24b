package damage

import "github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"

// Profile maps a damage type to its dice expression. Weapons and abilities
// each carry one; an empty or all-zero profile routes the caller to the legacy
// flat-damage fallback.
type Profile map[Type]dice.Expression

// Empty reports whether the profile contributes no damage at all.
func (p Profile) Empty() bool {
	for _, expr := range p {
		if !expr.IsZero() {
			return false
		}
	}
	return true
}

// MergeFirstWins overlays profiles left to right: when two profiles supply the
// same damage type, the first encountered wins. Combat slots are passed in
// priority order (primary 1H, 2H, off-hand), so the primary weapon's dice
// shadow duplicates from the off-hand.
func MergeFirstWins(profiles ...Profile) Profile {
	out := make(Profile)
	for _, p := range profiles {
		for t, expr := range p {
			if expr.IsZero() {
				continue
			}
			if _, taken := out[t]; !taken {
				out[t] = expr
			}
		}
	}
	return out
}
