package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/catalog"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/encounter"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/storage/postgres"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/testutil"
)

func testEncounter() *encounter.Encounter {
	wolf := &catalog.Enemy{ID: "wolf", Name: "Wolf"}
	return &encounter.Encounter{
		ID:         "enc-1",
		Kind:       encounter.KindParty,
		LocationID: "forest",
		MaxPlayers: 4,
		Participants: []*encounter.Participant{
			{PlayerID: "p1", IsLeader: true, Health: 40, MaxHealth: 40, Mana: 20, MaxMana: 20},
			{PlayerID: "p2", Health: 30, MaxHealth: 30, Mana: 10, MaxMana: 10},
		},
		Enemies: []*encounter.EnemyInstance{
			{SlotID: "slot-1", Template: wolf, Health: 20, MaxHealth: 20},
		},
		TurnOrder:      []string{"p1", "p2"},
		CurrentTurn:    "p1",
		TurnNumber:     1,
		Phase:          encounter.PhasePlayerTurn,
		ChannelBinding: "channel-9",
		MessageBinding: "message-7",
		Active:         true,
		CreatedAt:      time.Now(),
	}
}

func TestEncounterRepository_InsertSyncEnd(t *testing.T) {
	db := testutil.NewPool(t)
	repo := postgres.NewEncounterRepository(db)
	ctx := context.Background()

	seedEnemy(t, db, "wolf", "forest")
	enc := testEncounter()
	require.NoError(t, repo.Insert(ctx, enc))

	var participants, enemies int
	require.NoError(t, db.QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter_participants WHERE encounter_id = 'enc-1'`).Scan(&participants))
	require.NoError(t, db.QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter_enemies WHERE encounter_id = 'enc-1'`).Scan(&enemies))
	assert.Equal(t, 2, participants)
	assert.Equal(t, 1, enemies)

	// Mutate and sync: damage, mana spend, a fled participant, turn handoff.
	enc.Enemies[0].Health = 14
	enc.Participants[0].Mana = 10
	enc.Participants = enc.Participants[:1]
	enc.CurrentTurn = "p1"
	enc.TurnNumber = 2
	require.NoError(t, repo.Sync(ctx, enc))

	var health, mana, turnNumber int
	require.NoError(t, db.QueryRow(ctx,
		`SELECT health FROM encounter_enemies WHERE encounter_id = 'enc-1' AND slot_id = 'slot-1'`).Scan(&health))
	require.NoError(t, db.QueryRow(ctx,
		`SELECT mana FROM encounter_participants WHERE encounter_id = 'enc-1' AND player_id = 'p1'`).Scan(&mana))
	require.NoError(t, db.QueryRow(ctx,
		`SELECT turn_number FROM encounters WHERE id = 'enc-1'`).Scan(&turnNumber))
	assert.Equal(t, 14, health)
	assert.Equal(t, 10, mana)
	assert.Equal(t, 2, turnNumber)

	require.NoError(t, db.QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter_participants WHERE encounter_id = 'enc-1'`).Scan(&participants))
	assert.Equal(t, 1, participants, "fled participant pruned")

	enc.Active = false
	enc.EndReason = encounter.EndVictory
	require.NoError(t, repo.MarkEnded(ctx, enc))

	var active bool
	var reason, phase string
	require.NoError(t, db.QueryRow(ctx,
		`SELECT active, end_reason, phase FROM encounters WHERE id = 'enc-1'`).Scan(&active, &reason, &phase))
	assert.False(t, active)
	assert.Equal(t, string(encounter.EndVictory), reason)
	assert.Equal(t, string(encounter.PhaseEnded), phase)
}

func TestEncounterRepository_AbandonActive(t *testing.T) {
	db := testutil.NewPool(t)
	repo := postgres.NewEncounterRepository(db)
	ctx := context.Background()

	seedEnemy(t, db, "wolf", "forest")
	require.NoError(t, repo.Insert(ctx, testEncounter()))

	ids, err := repo.LoadActiveIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"enc-1"}, ids)

	count, err := repo.AbandonActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err = repo.LoadActiveIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	var reason string
	require.NoError(t, db.QueryRow(ctx,
		`SELECT end_reason FROM encounters WHERE id = 'enc-1'`).Scan(&reason))
	assert.Equal(t, string(encounter.EndCorrupted), reason)
}
