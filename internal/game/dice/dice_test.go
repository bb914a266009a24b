package dice_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
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

// mathSource adapts math/rand for the statistical tests.
type mathSource struct{ r *rand.Rand }

func (m mathSource) Intn(n int) int { return m.r.Intn(n) }

// TestParse_Forms verifies the accepted expression forms.
func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in                    string
		count, sides, modifier int
	}{
		{"1d6", 1, 6, 0},
		{"2d4+2", 2, 4, 2},
		{"4d8-2", 4, 8, -2},
		{"d20", 1, 20, 0},
		{" 2d6 + 3 ", 2, 6, 3},
		{"3", 0, 0, 3},
		{"-2", 0, 0, -2},
		{"0", 0, 0, 0},
	}
	for _, tc := range cases {
		e, err := dice.Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.count, e.Count, "Parse(%q) count", tc.in)
		assert.Equal(t, tc.sides, e.Sides, "Parse(%q) sides", tc.in)
		assert.Equal(t, tc.modifier, e.Modifier, "Parse(%q) modifier", tc.in)
	}
}

// TestParse_Errors verifies malformed expressions are rejected.
func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "  ", "xdy", "0d6", "-1d6", "2d", "2d0", "2d6+x"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "Parse(%q) should fail", in)
	}
}

// TestRoll_ZeroInclusive verifies a die can roll zero: the whiff is part of
// the design, not a bug.
func TestRoll_ZeroInclusive(t *testing.T) {
	src := &seqSource{vals: []int{0}}
	r := dice.Roll(dice.MustParse("1d6"), src)
	assert.Equal(t, 0, r.Total(), "a damage die must be able to whiff to zero")
}

// TestRoll_BareModifier verifies a bare integer expression rolls no dice.
func TestRoll_BareModifier(t *testing.T) {
	src := &seqSource{vals: []int{5}}
	r := dice.Roll(dice.MustParse("7"), src)
	assert.Empty(t, r.Dice)
	assert.Equal(t, 7, r.Total())
}

// TestRoll_SumsDiceAndModifier verifies Total with an injected sequence.
func TestRoll_SumsDiceAndModifier(t *testing.T) {
	src := &seqSource{vals: []int{3, 1}}
	r := dice.Roll(dice.MustParse("2d4+2"), src)
	assert.Equal(t, []int{3, 1}, r.Dice)
	assert.Equal(t, 6, r.Total())
}

// TestD20_Range verifies the check die covers [0, 20] inclusive: 21 outcomes.
func TestD20_Range(t *testing.T) {
	seen := make(map[int]bool)
	src := mathSource{rand.New(rand.NewSource(1))}
	for i := 0; i < 5000; i++ {
		v := dice.D20(src)
		require.GreaterOrEqual(t, v, 0)
		require.LessOrEqual(t, v, 20)
		seen[v] = true
	}
	assert.Len(t, seen, 21, "d20 must produce all 21 outcomes including 0")
}

// TestPercent_Range verifies Percent stays in [0, 100) with 0.1 granularity.
func TestPercent_Range(t *testing.T) {
	src := mathSource{rand.New(rand.NewSource(2))}
	for i := 0; i < 1000; i++ {
		v := dice.Percent(src)
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 100.0)
	}
}

// TestRoll_MeanProperty verifies parse→roll distribution has mean ≈ n·s/2 + m
// over a large sample (the dice are zero-inclusive, so each die averages s/2).
func TestRoll_MeanProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	src := mathSource{rand.New(rand.NewSource(42))}
	cases := []string{"1d6", "2d4+2", "3d10-1"}
	const samples = 200_000
	for _, exprStr := range cases {
		expr := dice.MustParse(exprStr)
		sum := 0
		for i := 0; i < samples; i++ {
			sum += dice.Roll(expr, src).Total()
		}
		mean := float64(sum) / samples
		want := float64(expr.Count)*float64(expr.Sides)/2 + float64(expr.Modifier)
		assert.InDelta(t, want, mean, 0.05, "mean of %s", exprStr)
	}
}

// TestRoll_TotalProperty checks the roll total bounds for arbitrary
// expressions: Modifier <= Total <= Count*Sides + Modifier.
func TestRoll_TotalProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(1, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-10, 10).Draw(rt, "mod")
		seed := rapid.Int64().Draw(rt, "seed")

		expr := dice.Expression{Raw: "x", Count: count, Sides: sides, Modifier: mod}
		r := dice.Roll(expr, mathSource{rand.New(rand.NewSource(seed))})

		assert.Len(rt, r.Dice, count)
		assert.GreaterOrEqual(rt, r.Total(), mod)
		assert.LessOrEqual(rt, r.Total(), count*sides+mod)
	})
}

// TestCryptoSource_Intn_InRange verifies the postcondition:
// every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

// TestCryptoSource_Intn_PanicsOnZero verifies the precondition:
// Intn panics when called with n <= 0.
func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

// TestRollResult_String verifies the audit string format.
func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

// TestRollResult_String_PanicsOnEmptyExpression verifies the precondition.
func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}
