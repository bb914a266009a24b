package encounter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
)

func party(t *testing.T, agility map[string]int) *encounter.Encounter {
	t.Helper()
	m := encounter.NewManager()
	var parts []*encounter.Participant
	for _, id := range []string{"A", "B", "C"} {
		if _, ok := agility[id]; ok {
			parts = append(parts, &encounter.Participant{PlayerID: id, Health: 30, MaxHealth: 30})
		}
	}
	parts[0].IsLeader = true
	enc, err := m.Create(encounter.Params{Kind: encounter.KindParty, LocationID: "loc", Participants: parts})
	require.NoError(t, err)
	enc.InitTurnOrder(func(id string) int { return agility[id] })
	return enc
}

// TestInitTurnOrder_AgilityDescending verifies agility 15/20/10
// orders the party [B, A, C].
func TestInitTurnOrder_AgilityDescending(t *testing.T) {
	enc := party(t, map[string]int{"A": 15, "B": 20, "C": 10})
	assert.Equal(t, []string{"B", "A", "C"}, enc.TurnOrder)
	assert.Equal(t, "B", enc.CurrentTurn)
	assert.Equal(t, 0, enc.TurnNumber)
	assert.Equal(t, encounter.PhasePlayerTurn, enc.Phase)
}

// TestInitTurnOrder_TieBreaksByID verifies agility ties resolve by ascending
// player id, deterministically.
func TestInitTurnOrder_TieBreaksByID(t *testing.T) {
	enc := party(t, map[string]int{"A": 10, "B": 10, "C": 10})
	assert.Equal(t, []string{"A", "B", "C"}, enc.TurnOrder)
}

// TestAdvance_SkipsDead verifies that after B's action the turn goes
// to A; when A dies during the enemy phase the next advance lands on C.
func TestAdvance_SkipsDead(t *testing.T) {
	enc := party(t, map[string]int{"A": 15, "B": 20, "C": 10})

	id, ok, err := enc.Advance()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", id)

	enc.ParticipantByID("A").Health = 0
	// B acted, A is dead: from A the walk must land on C.
	id, ok, err = enc.Advance()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C", id)
}

// TestAdvance_WrapIncrementsTurnNumber verifies the wrap bookkeeping.
func TestAdvance_WrapIncrementsTurnNumber(t *testing.T) {
	enc := party(t, map[string]int{"A": 15, "B": 20, "C": 10})
	for _, want := range []string{"A", "C", "B"} {
		id, ok, err := enc.Advance()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 1, enc.TurnNumber, "turn number increments when the walk passes the head")
}

// TestAdvance_NoLivingParticipant returns not-ok so the caller can end the
// encounter.
func TestAdvance_NoLivingParticipant(t *testing.T) {
	enc := party(t, map[string]int{"A": 15, "B": 20, "C": 10})
	for _, p := range enc.Participants {
		p.Health = 0
	}
	_, ok, err := enc.Advance()
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestAdvance_CorruptPointerErrors surfaces the invariant violation instead of
// guessing.
func TestAdvance_CorruptPointerErrors(t *testing.T) {
	enc := party(t, map[string]int{"A": 15, "B": 20, "C": 10})
	enc.CurrentTurn = "ghost"
	_, _, err := enc.Advance()
	assert.Error(t, err)
}

// TestRemoveParticipant_HandoffToNext verifies order [A,B,C] with
// current A; A flees; the roster and order drop A, B becomes current, and the
// turn number is unchanged.
func TestRemoveParticipant_HandoffToNext(t *testing.T) {
	enc := party(t, map[string]int{"A": 30, "B": 20, "C": 10})
	require.Equal(t, []string{"A", "B", "C"}, enc.TurnOrder)
	require.Equal(t, "A", enc.CurrentTurn)

	enc.RemoveParticipant("A")

	assert.Equal(t, []string{"B", "C"}, enc.TurnOrder)
	assert.Nil(t, enc.ParticipantByID("A"))
	assert.Equal(t, "B", enc.CurrentTurn)
	assert.Equal(t, 0, enc.TurnNumber)
}

// TestRemoveParticipant_NotCurrent leaves the turn pointer alone.
func TestRemoveParticipant_NotCurrent(t *testing.T) {
	enc := party(t, map[string]int{"A": 30, "B": 20, "C": 10})
	enc.RemoveParticipant("C")
	assert.Equal(t, []string{"A", "B"}, enc.TurnOrder)
	assert.Equal(t, "A", enc.CurrentTurn)
}

// TestRemoveParticipant_NextUpDead skips a dead next-up and keeps walking the
// original order.
func TestRemoveParticipant_NextUpDead(t *testing.T) {
	enc := party(t, map[string]int{"A": 30, "B": 20, "C": 10})
	enc.ParticipantByID("B").Health = 0
	enc.RemoveParticipant("A")
	assert.Equal(t, "C", enc.CurrentTurn)
}

// TestTurnOrder_Properties checks spec properties 1 and 4 across random
// action sequences: the turn pointer always references a living participant
// (or the roster is exhausted), and removal is consistent between the roster
// and the order.
func TestTurnOrder_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(rt, "n")
		m := encounter.NewManager()
		parts := make([]*encounter.Participant, n)
		agility := make(map[string]int, n)
		for i := range parts {
			id := string(rune('a' + i))
			parts[i] = &encounter.Participant{PlayerID: id, Health: 10, MaxHealth: 10}
			agility[id] = rapid.IntRange(0, 30).Draw(rt, "agi-"+id)
		}
		enc, err := m.Create(encounter.Params{Kind: encounter.KindParty, LocationID: "loc", Participants: parts})
		require.NoError(rt, err)
		enc.InitTurnOrder(func(id string) int { return agility[id] })

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for s := 0; s < steps; s++ {
			if len(enc.TurnOrder) == 0 {
				break
			}
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0: // advance
				id, ok, err := enc.Advance()
				require.NoError(rt, err)
				if !ok {
					return
				}
				p := enc.ParticipantByID(id)
				require.NotNil(rt, p)
				assert.True(rt, p.Alive(), "turn pointer must reference a living participant")
			case 1: // kill a random participant
				idx := rapid.IntRange(0, len(enc.Participants)-1).Draw(rt, "kill")
				enc.Participants[idx].Health = 0
			case 2: // flee a random participant
				idx := rapid.IntRange(0, len(enc.Participants)-1).Draw(rt, "flee")
				id := enc.Participants[idx].PlayerID
				enc.RemoveParticipant(id)
				assert.Nil(rt, enc.ParticipantByID(id), "removed from roster")
				for _, oid := range enc.TurnOrder {
					assert.NotEqual(rt, id, oid, "removed from turn order")
				}
			}
			// Cross-consistency: every turn-order id has a roster record.
			for _, oid := range enc.TurnOrder {
				assert.NotNil(rt, enc.ParticipantByID(oid))
			}
			if enc.CurrentTurn != "" && len(enc.TurnOrder) > 0 {
				p := enc.ParticipantByID(enc.CurrentTurn)
				require.NotNil(rt, p, "current turn must be a roster member")
			}
		}
	})
}
