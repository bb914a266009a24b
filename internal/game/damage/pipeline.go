package damage

import (
	"math"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// Breakdown maps damage type to the integer damage dealt for that type. The
// caller sums for the HP delta and keeps the per-type split for presentation.
type Breakdown map[Type]int

// Total returns the summed HP delta across all types.
//
// Postcondition: return value >= 0.
func (b Breakdown) Total() int {
	total := 0
	for _, v := range b {
		total += v
	}
	return total
}

// multiplier returns the attacker-stat scaling factor for one damage type:
// piercing scales with dexterity, crushing with strength, slashing with the
// average of both, and every non-physical type with intelligence.
func multiplier(t Type, atk stats.Attributes) float64 {
	switch t {
	case Piercing:
		return 1 + float64(atk.Dexterity)/100
	case Crushing:
		return 1 + float64(atk.Strength)/100
	case Slashing:
		return 1 + float64(atk.Strength+atk.Dexterity)/200
	default:
		return 1 + float64(atk.Intelligence)/100
	}
}

// CritMultiplier returns the critical-hit damage factor for an attacker:
// 1.5 plus one percent per point of luck.
func CritMultiplier(luck int) float64 {
	return 1.5 + float64(luck)*0.01
}

// Compute runs the damage pipeline for every non-empty entry of profile:
//
//  1. roll the dice (zero-inclusive; a whiff stays zero through every
//     multiplicative step),
//  2. apply the attacker stat multiplier,
//  3. apply the critical multiplier when critical is set,
//  4. gate on defender resistance — r >= 100 is full immunity (0), otherwise
//     scale by (1 − r/100); negative resistance amplifies,
//  5. apply the attacker's active damage_bonus_<type> and
//     damage_reduction_<type> effects multiplicatively in ledger order,
//  6. floor and clamp at zero.
//
// Types are visited in canonical All() order so that injected sources are
// consumed deterministically.
//
// Precondition: src must be non-nil; attackerMods is the attacker's active
// per-player effect list in ledger order (may be nil).
// Postcondition: every value of the returned Breakdown is >= 0; types with a
// zero dice expression are absent.
func Compute(
	atk stats.Attributes,
	defRes stats.Resistances,
	profile Profile,
	critical bool,
	attackerMods []effect.Effect,
	src dice.Source,
) Breakdown {
	out := make(Breakdown)
	for _, t := range All() {
		expr, ok := profile[t]
		if !ok || expr.IsZero() {
			continue
		}

		raw := dice.Roll(expr, src).Total()
		if raw < 0 {
			raw = 0
		}
		dmg := float64(raw) * multiplier(t, atk)

		if critical {
			dmg *= CritMultiplier(atk.Luck)
		}

		r := defRes.Get(string(t))
		if r >= 100 {
			out[t] = 0
			continue
		}
		dmg *= 1 - float64(r)/100

		for _, mod := range attackerMods {
			if bt, ok := effect.DamageBonusType(mod.Attribute); ok && bt == string(t) {
				dmg *= 1 + float64(mod.Value)/100
			} else if rt, ok := effect.DamageReductionType(mod.Attribute); ok && rt == string(t) {
				dmg *= 1 - float64(mod.Value)/100
			}
		}

		v := int(math.Floor(dmg))
		if v < 0 {
			v = 0
		}
		out[t] = v
	}
	return out
}
