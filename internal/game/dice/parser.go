package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
//
// A bare integer parses to (Count 0, Sides 0, Modifier m): no dice, flat
// damage only. After a successful Parse with dice present, Count >= 1 and
// Sides >= 1.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice; 0 for a bare modifier
	Sides    int    // faces per die; each die yields [0, Sides]
	Modifier int    // flat modifier (may be negative)
}

// IsZero reports whether the expression rolls no dice and adds no modifier.
func (e Expression) IsZero() bool {
	return e.Count == 0 && e.Modifier == 0
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "1d6", "2d4+2", "d8-1", "3" (bare integer), "-2".
// Whitespace around and inside the expression is tolerated ("2d6 + 3").
//
// Precondition: expr must be a non-empty string after trimming.
// Postcondition: Returns an Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := expr
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	s = strings.TrimSpace(s)
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		// Bare integer: flat modifier with no dice.
		m, err := strconv.Atoi(s)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid expression %q: %w", raw, err)
		}
		return Expression{Raw: raw, Modifier: m}, nil
	}

	// Count before 'd'; defaults to 1 when omitted ("d6").
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count < 1 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]

	// Split sides from the optional trailing ±M. The first sign past position
	// zero starts the modifier.
	modOffset := -1
	for i := 1; i < len(rest); i++ {
		if rest[i] == '+' || rest[i] == '-' {
			modOffset = i
			break
		}
	}

	sidesStr, modStr := rest, ""
	if modOffset >= 0 {
		sidesStr, modStr = rest[:modOffset], rest[modOffset:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 1 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 1", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{Raw: raw, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants
// and test fixtures.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
