package combat

import (
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// CheckResult is the outcome of one attack or ability resolution roll.
// Dodged and Blocked are melee-only; abilities either hit or miss.
type CheckResult struct {
	Hit      bool
	Critical bool
	Dodged   bool
	Blocked  bool
	Roll     int // the check d20, 0 when the sequence short-circuited before it
}

// ResolveMelee runs the physical attack check sequence. Rolls are drawn in a
// fixed order so deterministic sources line up in tests:
//
//  1. critical chance, 5 + attacker luck·0.5 percent
//  2. dodge chance, 5 + defender agility·0.5 — a dodge ends the sequence
//  3. block chance, 10 + defender dexterity·0.5 — a block short-circuits
//     damage to zero but still consumes the turn
//  4. hit when d20 + attacker dexterity > 10 + defender agility
//
// Precondition: src must be non-nil.
func ResolveMelee(atk, def stats.Attributes, src dice.Source) CheckResult {
	var res CheckResult
	res.Critical = dice.Percent(src) < 5+float64(atk.Luck)*0.5

	if dice.Percent(src) < 5+float64(def.Agility)*0.5 {
		return CheckResult{Dodged: true}
	}
	if dice.Percent(src) < 10+float64(def.Dexterity)*0.5 {
		res.Blocked = true
		return res
	}

	res.Roll = dice.D20(src)
	res.Hit = res.Roll+atk.Dexterity > 10+def.Agility
	return res
}

// ResolveAbility runs the ability hit check. Magical abilities pit attacker
// intelligence against defender willpower; physical ones use dexterity against
// agility. The threshold is 8 + defender stat — abilities land easier than
// autos — and there is no dodge or block roll.
//
// Draw order: critical chance (5 + attacker stat·0.5), then the hit d20.
//
// Precondition: src must be non-nil.
func ResolveAbility(atk, def stats.Attributes, magical bool, src dice.Source) CheckResult {
	atkStat, defStat := atk.Dexterity, def.Agility
	if magical {
		atkStat, defStat = atk.Intelligence, def.Willpower
	}

	var res CheckResult
	res.Critical = dice.Percent(src) < 5+float64(atkStat)*0.5
	res.Roll = dice.D20(src)
	res.Hit = res.Roll+atkStat > 8+defStat
	return res
}

// fleeBonus is the opposed-check modifier: (agility − 10) / 2, floored at 0.
func fleeBonus(agility int) int {
	b := (agility - 10) / 2
	if b < 0 {
		return 0
	}
	return b
}

// ResolveFlee runs the opposed escape check: the actor rolls d20 +
// fleeBonus(agility) against each living enemy's d20 + fleeBonus. The actor
// escapes only when no enemy meets or beats their total; otherwise every enemy
// that did lands a free attack, returned as indices into enemyAgilities.
//
// Draw order: the actor's d20 first, then one d20 per enemy in slice order.
//
// Precondition: src must be non-nil.
func ResolveFlee(actorAgility int, enemyAgilities []int, src dice.Source) (escaped bool, pursuers []int) {
	actorTotal := dice.D20(src) + fleeBonus(actorAgility)
	for i, agi := range enemyAgilities {
		if dice.D20(src)+fleeBonus(agi) >= actorTotal {
			pursuers = append(pursuers, i)
		}
	}
	return len(pursuers) == 0, pursuers
}
