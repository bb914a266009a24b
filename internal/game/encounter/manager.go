package encounter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/effect"
)

// ErrPlayerBusy is returned when a player already has an active encounter.
var ErrPlayerBusy = errors.New("player already in an active encounter")

// ErrNotFound is returned when no active encounter matches a lookup.
var ErrNotFound = errors.New("encounter not found")

// Params describes a new encounter. The roster comes from party formation and
// is consumed read-only; enemy instances are spawned by the caller from
// catalog templates.
type Params struct {
	Kind           Kind
	LocationID     string
	MaxPlayers     int
	ChannelBinding string
	MessageBinding string
	Participants   []*Participant
	Enemies        []*EnemyInstance
}

// Manager is the process-wide registry of active encounters, keyed by
// encounter id and by player id. It enforces the one-active-encounter-per-
// player invariant; per-encounter serialization is the Encounter's own action
// lock.
//
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	byID     map[string]*Encounter
	byPlayer map[string]string
	now      func() time.Time
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		byID:     make(map[string]*Encounter),
		byPlayer: make(map[string]string),
		now:      time.Now,
	}
}

// Create registers a new active encounter.
//
// Precondition: p.Participants must be non-empty.
// Postcondition: Returns the encounter with a fresh id, an empty effect
// ledger, Active == true, and every roster player indexed — or ErrPlayerBusy
// when any roster player is already in an active encounter (no registration
// happens in that case).
func (m *Manager) Create(p Params) (*Encounter, error) {
	if len(p.Participants) == 0 {
		return nil, fmt.Errorf("encounter needs at least one participant")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, part := range p.Participants {
		if encID, busy := m.byPlayer[part.PlayerID]; busy {
			return nil, fmt.Errorf("player %s (encounter %s): %w", part.PlayerID, encID, ErrPlayerBusy)
		}
	}

	enc := &Encounter{
		ID:             uuid.NewString(),
		Kind:           p.Kind,
		LocationID:     p.LocationID,
		MaxPlayers:     p.MaxPlayers,
		Participants:   p.Participants,
		Enemies:        p.Enemies,
		Phase:          PhasePlayerTurn,
		ChannelBinding: p.ChannelBinding,
		MessageBinding: p.MessageBinding,
		Active:         true,
		Effects:        effect.NewMemoryLedger(),
		CreatedAt:      m.now(),
		resolved:       make(map[string]struct{}),
	}

	m.byID[enc.ID] = enc
	for _, part := range p.Participants {
		m.byPlayer[part.PlayerID] = enc.ID
	}
	return enc, nil
}

// Get returns the active encounter with the given id.
func (m *Manager) Get(encounterID string) (*Encounter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	enc, ok := m.byID[encounterID]
	return enc, ok
}

// GetByPlayer returns the active encounter containing the player.
func (m *Manager) GetByPlayer(playerID string) (*Encounter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	encID, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	enc, ok := m.byID[encID]
	return enc, ok
}

// ReleasePlayer drops the player→encounter index entry after a successful
// flee. The encounter itself stays registered while other participants remain.
func (m *Manager) ReleasePlayer(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byPlayer, playerID)
}

// End marks the encounter inactive with the given reason and unregisters it
// and all of its players.
//
// Postcondition: the encounter is no longer returned by Get or GetByPlayer;
// enc.Active == false, enc.Phase == PhaseEnded.
func (m *Manager) End(encounterID string, reason EndReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	enc, ok := m.byID[encounterID]
	if !ok {
		return
	}
	enc.Active = false
	enc.EndReason = reason
	enc.Phase = PhaseEnded
	for _, p := range enc.Participants {
		if m.byPlayer[p.PlayerID] == encounterID {
			delete(m.byPlayer, p.PlayerID)
		}
	}
	delete(m.byID, encounterID)
}

// ActiveCount returns the number of registered encounters.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
