package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/loot"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/storage/postgres"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/testutil"
)

func TestInventoryRepository_AddItem(t *testing.T) {
	db := testutil.NewPool(t)
	repo := postgres.NewInventoryRepository(db)
	ctx := context.Background()

	seedPlayer(t, db, "p1") // capacity 3
	seedItem(t, db, "pelt", "material", "")

	require.NoError(t, repo.AddItem(ctx, "p1", "pelt", 2))
	require.NoError(t, repo.AddItem(ctx, "p1", "pelt", 3))

	var quantity int
	require.NoError(t, db.QueryRow(ctx,
		`SELECT quantity FROM player_inventory WHERE player_id = 'p1' AND item_id = 'pelt'`).Scan(&quantity))
	assert.Equal(t, 5, quantity, "awards stack onto the existing row")
}

func TestInventoryRepository_AddItem_Full(t *testing.T) {
	db := testutil.NewPool(t)
	repo := postgres.NewInventoryRepository(db)
	ctx := context.Background()

	seedPlayer(t, db, "p1") // capacity 3
	for i := range 4 {
		seedItem(t, db, fmt.Sprintf("item%d", i), "material", "")
	}

	for i := range 3 {
		require.NoError(t, repo.AddItem(ctx, "p1", fmt.Sprintf("item%d", i), 1))
	}

	err := repo.AddItem(ctx, "p1", "item3", 1)
	assert.ErrorIs(t, err, loot.ErrInventoryFull)

	// Stacking onto an existing row still works at capacity.
	assert.NoError(t, repo.AddItem(ctx, "p1", "item0", 1))
}

func TestInventoryRepository_AddItem_UnknownPlayer(t *testing.T) {
	db := testutil.NewPool(t)
	repo := postgres.NewInventoryRepository(db)

	seedItem(t, db, "pelt", "material", "")
	err := repo.AddItem(context.Background(), "nobody", "pelt", 1)
	assert.ErrorIs(t, err, postgres.ErrPlayerNotFound)
}

func TestPlayerRepository_PersistDefeat(t *testing.T) {
	db := testutil.NewPool(t)
	repo := postgres.NewPlayerRepository(db)
	ctx := context.Background()

	seedPlayer(t, db, "p1")
	require.NoError(t, repo.PersistDefeat(ctx, "p1"))

	var health int
	require.NoError(t, db.QueryRow(ctx,
		`SELECT current_health FROM players WHERE id = 'p1'`).Scan(&health))
	assert.Equal(t, 0, health)

	assert.ErrorIs(t, repo.PersistDefeat(ctx, "nobody"), postgres.ErrPlayerNotFound)
}
