package damage_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/stats"
)

// seqSource replays a fixed sequence of Intn results, then repeats the last.
type seqSource struct {
	vals []int
	i    int
}

func (s *seqSource) Intn(n int) int {
	v := s.vals[s.i]
	if s.i < len(s.vals)-1 {
		s.i++
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// TestCompute_SlashingStatMultiplier replays the damage step:
// a 6 on 1d6 slashing with str 20 / dex 10 yields 6·1.15 = 6.9 → 6.
func TestCompute_SlashingStatMultiplier(t *testing.T) {
	atk := stats.Attributes{Strength: 20, Dexterity: 10}
	profile := damage.Profile{damage.Slashing: dice.MustParse("1d6")}
	src := &seqSource{vals: []int{6}}

	got := damage.Compute(atk, stats.Resistances{}, profile, false, nil, src)
	assert.Equal(t, 6, got[damage.Slashing])
	assert.Equal(t, 6, got.Total())
}

// TestCompute_AbilityWithResistance replays the damage step:
// fire 2d4+2 with dice [3,1], int 40, fire resistance 50:
// (3+1+2)·1.4·0.5 = 4.2 → 4.
func TestCompute_AbilityWithResistance(t *testing.T) {
	atk := stats.Attributes{Intelligence: 40}
	profile := damage.Profile{damage.Fire: dice.MustParse("2d4+2")}
	src := &seqSource{vals: []int{3, 1}}

	got := damage.Compute(atk, stats.Resistances{"fire": 50}, profile, false, nil, src)
	assert.Equal(t, 4, got[damage.Fire])
}

// TestCompute_ImmunityGate verifies r >= 100 short-circuits to zero before
// any effect modifier is consulted.
func TestCompute_ImmunityGate(t *testing.T) {
	atk := stats.Attributes{Strength: 50, Luck: 20}
	profile := damage.Profile{damage.Crushing: dice.MustParse("2d6+4")}
	mods := []effect.Effect{{Attribute: "damage_bonus_crushing", Value: 500, Duration: time.Minute, Start: time.Now()}}

	for _, r := range []int{100, 150} {
		src := &seqSource{vals: []int{6, 6}}
		got := damage.Compute(atk, stats.Resistances{"crushing": r}, profile, true, mods, src)
		assert.Equal(t, 0, got[damage.Crushing], "resistance %d must be full immunity", r)
	}
}

// TestCompute_NegativeResistanceAmplifies verifies resistance below zero
// increases damage: raw 10 crushing vs −50 becomes 15.
func TestCompute_NegativeResistanceAmplifies(t *testing.T) {
	profile := damage.Profile{damage.Crushing: dice.MustParse("10")}
	got := damage.Compute(stats.Attributes{}, stats.Resistances{"crushing": -50}, profile, false, nil, &seqSource{vals: []int{0}})
	assert.Equal(t, 15, got[damage.Crushing])
}

// TestCompute_CriticalMultiplier verifies 1.5 + luck·0.01 scaling and that a
// critical over a zero roll stays zero.
func TestCompute_CriticalMultiplier(t *testing.T) {
	atk := stats.Attributes{Luck: 10}
	profile := damage.Profile{damage.Fire: dice.MustParse("1d10")}

	got := damage.Compute(atk, stats.Resistances{}, profile, true, nil, &seqSource{vals: []int{10}})
	// 10 · 1.0 (int 0) · 1.6 = 16
	assert.Equal(t, 16, got[damage.Fire])

	got = damage.Compute(atk, stats.Resistances{}, profile, true, nil, &seqSource{vals: []int{0}})
	assert.Equal(t, 0, got[damage.Fire], "critical on a whiff is still zero")
}

// TestCompute_EffectModifiersInLedgerOrder verifies bonus and reduction apply
// multiplicatively in insertion order and only to their own type.
func TestCompute_EffectModifiersInLedgerOrder(t *testing.T) {
	profile := damage.Profile{damage.Fire: dice.MustParse("100")}
	now := time.Now()
	mods := []effect.Effect{
		{Attribute: "damage_bonus_fire", Value: 50, Duration: time.Minute, Start: now},
		{Attribute: "damage_reduction_fire", Value: 20, Duration: time.Minute, Start: now},
		{Attribute: "damage_bonus_ice", Value: 900, Duration: time.Minute, Start: now},
		{Attribute: "strength", Value: 50, Duration: time.Minute, Start: now}, // stat mod: ignored here
	}
	got := damage.Compute(stats.Attributes{}, stats.Resistances{}, profile, false, mods, &seqSource{vals: []int{0}})
	// 100 · 1.5 · 0.8 = 120
	assert.Equal(t, 120, got[damage.Fire])
}

// TestCompute_SkipsZeroExpressions verifies empty dice entries produce no
// breakdown rows.
func TestCompute_SkipsZeroExpressions(t *testing.T) {
	profile := damage.Profile{
		damage.Fire:     dice.Expression{},
		damage.Crushing: dice.MustParse("1d4"),
	}
	got := damage.Compute(stats.Attributes{}, stats.Resistances{}, profile, false, nil, &seqSource{vals: []int{2}})
	require.Len(t, got, 1)
	assert.Contains(t, got, damage.Crushing)
}

// TestCompute_ResistanceProperty checks spec property 2 for arbitrary inputs:
// r >= 100 ⇒ 0, and r == 0 ⇒ ⌊raw · mult · crit⌋.
func TestCompute_ResistanceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		str := rapid.IntRange(0, 100).Draw(rt, "str")
		luck := rapid.IntRange(0, 50).Draw(rt, "luck")
		roll := rapid.IntRange(0, 12).Draw(rt, "roll")
		crit := rapid.Bool().Draw(rt, "crit")
		immune := rapid.Bool().Draw(rt, "immune")

		res := stats.Resistances{}
		if immune {
			res["crushing"] = rapid.IntRange(100, 500).Draw(rt, "res")
		}
		atk := stats.Attributes{Strength: str, Luck: luck}
		profile := damage.Profile{damage.Crushing: dice.MustParse("1d12")}
		got := damage.Compute(atk, res, profile, crit, nil, &seqSource{vals: []int{roll}})

		if immune {
			assert.Equal(rt, 0, got[damage.Crushing])
			return
		}
		want := float64(roll) * (1 + float64(str)/100)
		if crit {
			want *= 1.5 + float64(luck)*0.01
		}
		assert.Equal(rt, int(math.Floor(want)), got[damage.Crushing])
	})
}

// TestMergeFirstWins verifies slot-priority shadowing for duplicate types.
func TestMergeFirstWins(t *testing.T) {
	primary := damage.Profile{damage.Slashing: dice.MustParse("1d8")}
	offhand := damage.Profile{
		damage.Slashing: dice.MustParse("1d4"),
		damage.Fire:     dice.MustParse("1d6"),
	}
	merged := damage.MergeFirstWins(primary, offhand)
	assert.Equal(t, "1d8", merged[damage.Slashing].Raw, "primary slot wins the shared type")
	assert.Equal(t, "1d6", merged[damage.Fire].Raw)
}

// TestProfile_Empty treats all-zero expressions as empty.
func TestProfile_Empty(t *testing.T) {
	assert.True(t, damage.Profile{}.Empty())
	assert.True(t, damage.Profile{damage.Fire: dice.Expression{}}.Empty())
	assert.False(t, damage.Profile{damage.Fire: dice.MustParse("1")}.Empty())
}

// TestCompute_DeterministicTypeOrder verifies the canonical iteration order by
// feeding distinct rolls to a two-type profile.
func TestCompute_DeterministicTypeOrder(t *testing.T) {
	profile := damage.Profile{
		damage.Piercing: dice.MustParse("1d20"),
		damage.Fire:     dice.MustParse("1d20"),
	}
	// Piercing precedes Fire in canonical order, so it consumes the 7.
	src := &seqSource{vals: []int{7, 13}}
	got := damage.Compute(stats.Attributes{}, stats.Resistances{}, profile, false, nil, src)
	assert.Equal(t, 7, got[damage.Piercing])
	assert.Equal(t, 13, got[damage.Fire])
}

// TestValidAndPhysical spot-checks the type predicates.
func TestValidAndPhysical(t *testing.T) {
	for _, typ := range damage.All() {
		assert.True(t, damage.Valid(typ))
	}
	assert.False(t, damage.Valid(damage.Type("radiant")))
	assert.True(t, damage.Physical(damage.Slashing))
	assert.False(t, damage.Physical(damage.Magic))
	assert.Equal(t, "fire_resistance", damage.ResistanceColumn(damage.Fire))
}
