// Package damage implements the damage type system and the per-type damage
// pipeline: dice roll → stat multiplier → critical → resistance → attacker
// effect modifiers → floor.
package damage

// Type is one of the thirteen damage types. Each type has a matching
// resistance attribute named "<type>_resistance" in the catalog and keyed by
// the bare type name in stats.Resistances.
type Type string

const (
	Piercing  Type = "piercing"
	Crushing  Type = "crushing"
	Slashing  Type = "slashing"
	Fire      Type = "fire"
	Ice       Type = "ice"
	Lightning Type = "lightning"
	Water     Type = "water"
	Earth     Type = "earth"
	Air       Type = "air"
	Light     Type = "light"
	Dark      Type = "dark"
	Magic     Type = "magic"
	Poison    Type = "poison"
)

// All returns every damage type in canonical order. The pipeline iterates
// profiles in this order so injected dice sources are consumed
// deterministically.
func All() []Type {
	return []Type{
		Piercing, Crushing, Slashing,
		Fire, Ice, Lightning, Water, Earth, Air,
		Light, Dark, Magic, Poison,
	}
}

// Valid reports whether t is a recognized damage type.
func Valid(t Type) bool {
	switch t {
	case Piercing, Crushing, Slashing, Fire, Ice, Lightning, Water, Earth,
		Air, Light, Dark, Magic, Poison:
		return true
	}
	return false
}

// Physical reports whether t is one of the three physical types. Everything
// else scales with intelligence.
func Physical(t Type) bool {
	return t == Piercing || t == Crushing || t == Slashing
}

// ResistanceColumn returns the catalog column name for t's resistance
// attribute, e.g. "fire_resistance".
func ResistanceColumn(t Type) string {
	return string(t) + "_resistance"
}
