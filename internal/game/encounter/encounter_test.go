package encounter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
)

func soloWith(t *testing.T, enemies ...*encounter.EnemyInstance) *encounter.Encounter {
	t.Helper()
	m := encounter.NewManager()
	enc, err := m.Create(encounter.Params{
		Kind:       encounter.KindSolo,
		LocationID: "loc",
		Participants: []*encounter.Participant{
			{PlayerID: "p1", IsLeader: true, Health: 25, MaxHealth: 25, Mana: 10, MaxMana: 10},
		},
		Enemies: enemies,
	})
	require.NoError(t, err)
	return enc
}

func wolf(slot string, hp int) *encounter.EnemyInstance {
	return &encounter.EnemyInstance{
		SlotID:    slot,
		Template:  &catalog.Enemy{ID: "wolf", Name: "Dire Wolf", Health: hp},
		Health:    hp,
		MaxHealth: hp,
	}
}

func TestMarkResolved_ReplayIsIdempotent(t *testing.T) {
	enc := soloWith(t, wolf("e1", 12))
	enc.Lock()
	defer enc.Unlock()

	assert.True(t, enc.MarkResolved("action-1"), "first delivery resolves")
	assert.False(t, enc.MarkResolved("action-1"), "replay must not mutate state")
	assert.True(t, enc.MarkResolved("action-2"), "distinct ids are independent")
	assert.True(t, enc.MarkResolved(""), "empty id opts out of dedup")
	assert.True(t, enc.MarkResolved(""))
}

func TestDamage_ClampsAtZero(t *testing.T) {
	enc := soloWith(t, wolf("e1", 12))

	require.NoError(t, enc.DamageEnemy("e1", 40))
	assert.Equal(t, 0, enc.EnemyBySlot("e1").Health)
	assert.False(t, enc.EnemyBySlot("e1").Alive())

	require.NoError(t, enc.DamageParticipant("p1", 100))
	assert.Equal(t, 0, enc.ParticipantByID("p1").Health)

	assert.Error(t, enc.DamageEnemy("nope", 1))
	assert.Error(t, enc.DamageParticipant("nope", 1))
}

func TestSpendMana_Clamps(t *testing.T) {
	enc := soloWith(t, wolf("e1", 12))
	require.NoError(t, enc.SpendMana("p1", 4))
	assert.Equal(t, 6, enc.ParticipantByID("p1").Mana)
	require.NoError(t, enc.SpendMana("p1", 99))
	assert.Equal(t, 0, enc.ParticipantByID("p1").Mana)
	assert.Error(t, enc.SpendMana("nope", 1))
}

func TestOutcome_EndDetection(t *testing.T) {
	enc := soloWith(t, wolf("e1", 12), wolf("e2", 8))
	assert.Equal(t, encounter.Ongoing, enc.Outcome())

	require.NoError(t, enc.DamageEnemy("e1", 12))
	assert.Equal(t, encounter.Ongoing, enc.Outcome(), "one enemy still standing")

	require.NoError(t, enc.DamageEnemy("e2", 8))
	assert.Equal(t, encounter.Victory, enc.Outcome())

	// Player drops too: simultaneous death is a draw.
	require.NoError(t, enc.DamageParticipant("p1", 25))
	assert.Equal(t, encounter.Draw, enc.Outcome())
}

func TestOutcome_Defeat(t *testing.T) {
	enc := soloWith(t, wolf("e1", 12))
	require.NoError(t, enc.DamageParticipant("p1", 25))
	assert.Equal(t, encounter.Defeat, enc.Outcome())
}

func TestLeader_FallsBackToFirst(t *testing.T) {
	m := encounter.NewManager()
	enc, err := m.Create(encounter.Params{
		Kind:       encounter.KindParty,
		LocationID: "loc",
		Participants: []*encounter.Participant{
			{PlayerID: "x", Health: 1, MaxHealth: 1},
			{PlayerID: "y", Health: 1, MaxHealth: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "x", enc.Leader().PlayerID)

	enc.Participants[1].IsLeader = true
	assert.Equal(t, "y", enc.Leader().PlayerID)
}
