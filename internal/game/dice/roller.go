package dice

// Roll evaluates an Expression using the given Source and returns a RollResult.
// Each die yields a uniform integer in [0, expr.Sides] inclusive; zero rolls
// are a deliberate whiff, not an error.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(result.Dice) == expr.Count and
// result.Total() == sum(result.Dice) + result.Modifier.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides + 1)
	}
	return RollResult{
		Expression: expr.Raw,
		Dice:       rolled,
		Modifier:   expr.Modifier,
	}
}

// RollExpr parses expr and rolls it using src in a single call.
//
// Precondition: expr must be a valid dice expression string; src must be non-nil.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src), nil
}

// D20 returns a uniform integer in [0, 20] inclusive — 21 outcomes.
// The zero-inclusive d20 mirrors the original engine's check die and is kept
// deliberately; see the parser doc for the same choice on damage dice.
//
// Precondition: src must be non-nil.
func D20(src Source) int {
	return src.Intn(21)
}

// Percent returns a uniform percentage in [0.0, 99.9] with 0.1 granularity.
// Chance formulas in the attack resolver use half-point steps (luck·0.5), so
// a whole-point roll would quantize them away.
//
// Precondition: src must be non-nil.
func Percent(src Source) float64 {
	return float64(src.Intn(1000)) / 10.0
}
