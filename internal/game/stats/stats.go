// Package stats defines the attribute and resistance vectors shared by players
// and enemies, and the effective-value resolution rule for the pre-aggregated
// player stat view.
package stats

// Attributes is the nine-slot attribute vector carried by every actor.
type Attributes struct {
	Strength     int
	Dexterity    int
	Intelligence int
	Wisdom       int
	Agility      int
	Endurance    int
	Charisma     int
	Willpower    int
	Luck         int
}

// Get returns the named attribute, or (0, false) when name is not an
// attribute-vector entry. Names are the lower-case column identifiers used by
// the effect ledger ("strength", "agility", ...).
func (a Attributes) Get(name string) (int, bool) {
	switch name {
	case "strength":
		return a.Strength, true
	case "dexterity":
		return a.Dexterity, true
	case "intelligence":
		return a.Intelligence, true
	case "wisdom":
		return a.Wisdom, true
	case "agility":
		return a.Agility, true
	case "endurance":
		return a.Endurance, true
	case "charisma":
		return a.Charisma, true
	case "willpower":
		return a.Willpower, true
	case "luck":
		return a.Luck, true
	default:
		return 0, false
	}
}

// Add returns a copy of a with the named attribute incremented by delta.
// Unknown names return a unchanged.
func (a Attributes) Add(name string, delta int) Attributes {
	switch name {
	case "strength":
		a.Strength += delta
	case "dexterity":
		a.Dexterity += delta
	case "intelligence":
		a.Intelligence += delta
	case "wisdom":
		a.Wisdom += delta
	case "agility":
		a.Agility += delta
	case "endurance":
		a.Endurance += delta
	case "charisma":
		a.Charisma += delta
	case "willpower":
		a.Willpower += delta
	case "luck":
		a.Luck += delta
	}
	return a
}

// IsAttribute reports whether name is an entry of the attribute vector.
func IsAttribute(name string) bool {
	_, ok := Attributes{}.Get(name)
	return ok
}

// Resistances maps a damage type name to its resistance value in (−∞, 100].
// 100 or greater means full immunity; negative values amplify damage.
type Resistances map[string]int

// Get returns the resistance for the damage type, defaulting to 0.
func (r Resistances) Get(damageType string) int {
	return r[damageType]
}

// Clone returns an independent copy of r.
func (r Resistances) Clone() Resistances {
	out := make(Resistances, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Effective merges a base vector with an optional pre-aggregated total view:
// the total wins when present, base otherwise. This precedence is the sole
// merging rule; there is no per-field blending.
func Effective(base Attributes, total *Attributes) Attributes {
	if total != nil {
		return *total
	}
	return base
}

// EffectiveResistances applies the same total-over-base precedence to
// resistance vectors.
func EffectiveResistances(base Resistances, total Resistances) Resistances {
	if total != nil {
		return total
	}
	return base
}
