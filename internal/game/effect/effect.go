// Package effect implements the timed-modifier ledgers: buffs, debuffs, and
// damage-over-time entries scoped to an encounter or to a player.
package effect

import (
	"strings"
	"time"
)

// TargetKind distinguishes player targets from enemy slot targets.
type TargetKind string

const (
	TargetPlayer TargetKind = "player"
	TargetEnemy  TargetKind = "enemy"
)

// Target identifies the entity an effect is attached to. Enemy targets use the
// per-encounter slot id, not the catalog template id.
type Target struct {
	Kind TargetKind
	ID   string
}

// Effect is one row of an effect ledger. Multiple rows with the same Attribute
// stack additively; expiry is lazy (rows are filtered on read and purged on
// demand, there is no background tick).
type Effect struct {
	ID          string // row id (uuid)
	EncounterID string // empty for the persistent per-player ledger
	Target      Target
	Attribute   string // namespace: damage_bonus_<t>, damage_reduction_<t>, dot_<t>, or an attribute name
	Value       int
	Duration    time.Duration
	Start       time.Time
}

// ExpiresAt returns the instant the effect stops applying.
func (e Effect) ExpiresAt() time.Time {
	return e.Start.Add(e.Duration)
}

// ActiveAt reports whether the effect still applies at now:
// start + duration > now.
func (e Effect) ActiveAt(now time.Time) bool {
	return e.ExpiresAt().After(now)
}

// DamageBonusType extracts the damage type from a damage_bonus_<type>
// attribute, reporting false for any other namespace.
func DamageBonusType(attribute string) (string, bool) {
	return strings.CutPrefix(attribute, "damage_bonus_")
}

// DamageReductionType extracts the damage type from a damage_reduction_<type>
// attribute.
func DamageReductionType(attribute string) (string, bool) {
	return strings.CutPrefix(attribute, "damage_reduction_")
}

// DoTType extracts the damage type from a dot_<type> attribute.
func DoTType(attribute string) (string, bool) {
	return strings.CutPrefix(attribute, "dot_")
}
