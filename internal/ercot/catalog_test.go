package ercot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	p, ok := c.Lookup("HB_WEST")
	require.True(t, ok)
	assert.Equal(t, "HU", p.Type)

	_, ok = c.Lookup("HB_NOWHERE")
	assert.False(t, ok)
}

func TestCatalogRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "points.json")
	in := newCatalog([]SettlementPoint{
		{ID: "LZ_WEST", Name: "West Load Zone", Type: "LZ"},
		{ID: "HB_WEST", Name: "West Hub", Type: "HU"},
	})
	in.UpdatedAt = "2026-02-10T00:00:00Z"
	require.NoError(t, SaveCatalog(in, path))

	out, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "HB_WEST", out.Points[0].ID)
	_, ok := out.Lookup("LZ_WEST")
	assert.True(t, ok)
}

func TestLoadCatalogOrDefault(t *testing.T) {
	c, err := LoadCatalogOrDefault(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	_, ok := c.Lookup("HB_NORTH")
	assert.True(t, ok)

	c, err = LoadCatalogOrDefault("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Points)
}
