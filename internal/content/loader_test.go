package content_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/content"
	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/damage"
)

const samplePack = `
items:
  - id: sword_iron
    name: Iron Sword
    type: weapon
    slot: 1H_weapon
    rarity: common
    damage:
      slashing: 1d6
  - id: wolf_pelt
    name: Wolf Pelt
    type: material
    rarity: common
abilities:
  - id: firebolt
    name: Firebolt
    element: fire
    mana_cost: 10
    damage:
      fire: 1d4+2
    status:
      attribute: dot_fire
      duration: 9s
      value: 3
enemies:
  - id: wolf
    name: Wolf
    location: forest
    health: 20
    hook_script: wolf
    attributes:
      strength: 12
      dexterity: 10
      agility: 10
    resistances:
      slashing: 10
    damage:
      piercing: 1d4
    drops:
      - item: wolf_pelt
        rate: 30
        quantity: 1
`

func TestLoadPackFromBytes(t *testing.T) {
	pack, err := content.LoadPackFromBytes([]byte(samplePack))
	require.NoError(t, err)

	require.Len(t, pack.Items, 2)
	sword := pack.Items[0]
	assert.Equal(t, "sword_iron", sword.ID)
	assert.True(t, sword.IsCombatWeapon())
	expr, ok := sword.Profile[damage.Slashing]
	require.True(t, ok)
	assert.Equal(t, 1, expr.Count)
	assert.Equal(t, 6, expr.Sides)

	require.Len(t, pack.Abilities, 1)
	firebolt := pack.Abilities[0]
	assert.Equal(t, damage.Fire, firebolt.Element)
	assert.True(t, firebolt.Magical())
	require.NotNil(t, firebolt.Status)
	assert.Equal(t, "dot_fire", firebolt.Status.Attribute)
	assert.Equal(t, 9*time.Second, firebolt.Status.Duration)
	assert.Equal(t, 3, firebolt.Status.Value)

	require.Len(t, pack.Enemies, 1)
	wolf := pack.Enemies[0]
	assert.Equal(t, "forest", wolf.LocationID)
	assert.Equal(t, 12, wolf.Attributes.Strength)
	assert.Equal(t, 10, wolf.Resistances.Get("slashing"))
	assert.Equal(t, "wolf", wolf.HookScript)

	rows := pack.Drops["wolf"]
	require.Len(t, rows, 1)
	assert.Equal(t, "wolf_pelt", rows[0].ItemID)
	assert.Equal(t, 30, rows[0].DropRate)
	assert.Equal(t, 1, rows[0].Quantity)
}

func TestLoadPackFromBytes_InvalidDice(t *testing.T) {
	_, err := content.LoadPackFromBytes([]byte(`
items:
  - id: bad
    name: Bad
    type: weapon
    slot: 1H_weapon
    damage:
      slashing: 1dSIX
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestLoadPackFromBytes_UnknownDamageType(t *testing.T) {
	_, err := content.LoadPackFromBytes([]byte(`
items:
  - id: bad
    name: Bad
    type: weapon
    slot: 1H_weapon
    damage:
      sonic: 1d6
`))
	assert.Error(t, err)
}

func TestLoadPackFromBytes_UnknownAttribute(t *testing.T) {
	_, err := content.LoadPackFromBytes([]byte(`
enemies:
  - id: wolf
    name: Wolf
    location: forest
    health: 20
    attributes:
      ferocity: 12
`))
	assert.Error(t, err)
}

func TestLoadPackFromBytes_BadStatusDuration(t *testing.T) {
	_, err := content.LoadPackFromBytes([]byte(`
abilities:
  - id: firebolt
    name: Firebolt
    element: fire
    status:
      attribute: dot_fire
      duration: nine seconds
      value: 3
`))
	assert.Error(t, err)
}

func TestLoadDir_MergesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.yaml"), []byte(`
items:
  - id: wolf_pelt
    name: Wolf Pelt
    type: material
    rarity: common
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enemies.yaml"), []byte(`
enemies:
  - id: wolf
    name: Wolf
    location: forest
    health: 20
    drops:
      - item: wolf_pelt
        rate: 100
        quantity: 2
`), 0644))

	pack, err := content.LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, pack.Items, 1)
	assert.Len(t, pack.Enemies, 1)
	assert.Len(t, pack.Drops["wolf"], 1)
}

func TestLoadDir_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	item := []byte(`
items:
  - id: wolf_pelt
    name: Wolf Pelt
    type: material
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), item, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), item, 0644))

	_, err := content.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate item id")
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := content.LoadDir(t.TempDir())
	assert.Error(t, err)
}
