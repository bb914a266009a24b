// Package encounter holds the authoritative battle record: participants,
// enemy instances, turn order, phase, and the encounter-scoped effect ledger,
// together with the turn scheduler and the in-memory encounter manager.
package encounter

import (
	"fmt"
	"sync"
	"time"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
)

// Kind distinguishes solo hunts from party hunts.
type Kind string

const (
	KindSolo  Kind = "solo"
	KindParty Kind = "party"
)

// Phase is the encounter state-machine phase.
type Phase string

const (
	PhasePlayerTurn Phase = "player_turn"
	PhaseEnemyTurn  Phase = "enemy_turn"
	PhaseResolving  Phase = "resolving"
	PhaseEnded      Phase = "ended"
)

// EndReason records why an encounter went inactive, for audit.
type EndReason string

const (
	EndVictory   EndReason = "victory"
	EndDefeat    EndReason = "defeat"
	EndDraw      EndReason = "draw"
	EndFled      EndReason = "fled"
	EndNoEnemies EndReason = "no_enemies"
	EndCorrupted EndReason = "corrupted"
)

// Outcome is the end-detection result after a health mutation.
type Outcome int

const (
	Ongoing Outcome = iota
	Victory
	Defeat
	Draw
)

// Participant is a player inside an encounter. Health and mana are
// per-encounter copies, decoupled from persistent stats until the encounter
// ends.
type Participant struct {
	PlayerID  string
	IsLeader  bool
	Health    int
	MaxHealth int
	Mana      int
	MaxMana   int
}

// Alive reports whether the participant can still act.
func (p *Participant) Alive() bool { return p.Health > 0 }

// EnemyInstance is one spawned enemy. SlotID is the per-encounter identity;
// Template points at the read-only catalog row.
type EnemyInstance struct {
	SlotID    string
	Template  *catalog.Enemy
	Health    int
	MaxHealth int
	IsBoss    bool
}

// Alive reports whether the enemy can still act.
func (e *EnemyInstance) Alive() bool { return e.Health > 0 }

// Name returns the catalog display name.
func (e *EnemyInstance) Name() string { return e.Template.Name }

// Encounter is the authoritative record of one battle. All mutation happens
// under the per-encounter action lock; the manager hands out the record but
// callers must hold Lock() across a validate-then-mutate section.
type Encounter struct {
	ID             string
	Kind           Kind
	LocationID     string
	MaxPlayers     int
	Participants   []*Participant
	Enemies        []*EnemyInstance
	TurnOrder      []string // player ids only; enemies act as a single phase
	CurrentTurn    string
	TurnNumber     int
	Phase          Phase
	ChannelBinding string
	MessageBinding string
	Active         bool
	EndReason      EndReason
	Effects        *effect.MemoryLedger // encounter-scoped ledger
	CreatedAt      time.Time

	mu       sync.Mutex
	resolved map[string]struct{}
}

// Lock acquires the encounter's action lock. Actions from different players
// serialize here in arrival order.
func (e *Encounter) Lock() { e.mu.Lock() }

// Unlock releases the action lock.
func (e *Encounter) Unlock() { e.mu.Unlock() }

// MarkResolved records an action correlation id inside the critical section.
// It returns false when the id was already resolved, making replays
// idempotent: the caller must not mutate state on a false return.
//
// Precondition: the caller holds the action lock.
func (e *Encounter) MarkResolved(actionID string) bool {
	if actionID == "" {
		return true
	}
	if _, seen := e.resolved[actionID]; seen {
		return false
	}
	e.resolved[actionID] = struct{}{}
	return true
}

// ParticipantByID returns the participant record, or nil.
func (e *Encounter) ParticipantByID(playerID string) *Participant {
	for _, p := range e.Participants {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// EnemyBySlot returns the enemy instance for a slot id, or nil.
func (e *Encounter) EnemyBySlot(slotID string) *EnemyInstance {
	for _, en := range e.Enemies {
		if en.SlotID == slotID {
			return en
		}
	}
	return nil
}

// LivingEnemies returns a snapshot of enemies with Health > 0.
func (e *Encounter) LivingEnemies() []*EnemyInstance {
	var out []*EnemyInstance
	for _, en := range e.Enemies {
		if en.Alive() {
			out = append(out, en)
		}
	}
	return out
}

// LivingParticipants returns a snapshot of participants with Health > 0.
func (e *Encounter) LivingParticipants() []*Participant {
	var out []*Participant
	for _, p := range e.Participants {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// Leader returns the leader participant, falling back to the first-listed
// participant when no leader flag is set, or nil when the roster is empty.
func (e *Encounter) Leader() *Participant {
	for _, p := range e.Participants {
		if p.IsLeader {
			return p
		}
	}
	if len(e.Participants) > 0 {
		return e.Participants[0]
	}
	return nil
}

// DamageParticipant reduces a participant's health, clamped to [0, max].
//
// Precondition: amount >= 0; the caller holds the action lock.
// Postcondition: 0 <= Health <= MaxHealth.
func (e *Encounter) DamageParticipant(playerID string, amount int) error {
	p := e.ParticipantByID(playerID)
	if p == nil {
		return fmt.Errorf("participant %q not in encounter %s", playerID, e.ID)
	}
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
	return nil
}

// DamageEnemy reduces an enemy's health, clamped to [0, max].
//
// Precondition: amount >= 0; the caller holds the action lock.
func (e *Encounter) DamageEnemy(slotID string, amount int) error {
	en := e.EnemyBySlot(slotID)
	if en == nil {
		return fmt.Errorf("enemy slot %q not in encounter %s", slotID, e.ID)
	}
	en.Health -= amount
	if en.Health < 0 {
		en.Health = 0
	}
	return nil
}

// SpendMana deducts mana from a participant, clamped to [0, max].
//
// Precondition: the caller has already verified Mana >= amount.
func (e *Encounter) SpendMana(playerID string, amount int) error {
	p := e.ParticipantByID(playerID)
	if p == nil {
		return fmt.Errorf("participant %q not in encounter %s", playerID, e.ID)
	}
	p.Mana -= amount
	if p.Mana < 0 {
		p.Mana = 0
	}
	return nil
}

// Outcome runs end detection: called after any health mutation.
func (e *Encounter) Outcome() Outcome {
	enemiesDead := len(e.LivingEnemies()) == 0
	playersDead := len(e.LivingParticipants()) == 0
	switch {
	case enemiesDead && playersDead:
		return Draw
	case enemiesDead:
		return Victory
	case playersDead:
		return Defeat
	default:
		return Ongoing
	}
}
