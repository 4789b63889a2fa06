package ercot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SettlementPoint is one entry of the settlement point catalog.
type SettlementPoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // HU, AH, LZ
}

// Catalog is the list of settlement points the service accepts.
type Catalog struct {
	UpdatedAt string            `json:"updated_at,omitempty"`
	Points    []SettlementPoint `json:"settlement_points"`

	index map[string]SettlementPoint
}

// DefaultCatalog lists the trading hubs and load zones.
func DefaultCatalog() *Catalog {
	return newCatalog([]SettlementPoint{
		{ID: "HB_BUSAVG", Name: "Bus Average Hub", Type: "AH"},
		{ID: "HB_HUBAVG", Name: "Hub Average", Type: "AH"},
		{ID: "HB_HOUSTON", Name: "Houston Hub", Type: "HU"},
		{ID: "HB_NORTH", Name: "North Hub", Type: "HU"},
		{ID: "HB_PAN", Name: "Panhandle Hub", Type: "HU"},
		{ID: "HB_SOUTH", Name: "South Hub", Type: "HU"},
		{ID: "HB_WEST", Name: "West Hub", Type: "HU"},
		{ID: "LZ_AEN", Name: "Austin Energy Load Zone", Type: "LZ"},
		{ID: "LZ_CPS", Name: "CPS Energy Load Zone", Type: "LZ"},
		{ID: "LZ_HOUSTON", Name: "Houston Load Zone", Type: "LZ"},
		{ID: "LZ_LCRA", Name: "LCRA Load Zone", Type: "LZ"},
		{ID: "LZ_NORTH", Name: "North Load Zone", Type: "LZ"},
		{ID: "LZ_RAYBN", Name: "Rayburn Load Zone", Type: "LZ"},
		{ID: "LZ_SOUTH", Name: "South Load Zone", Type: "LZ"},
		{ID: "LZ_WEST", Name: "West Load Zone", Type: "LZ"},
	})
}

func newCatalog(points []SettlementPoint) *Catalog {
	c := &Catalog{Points: points}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	sort.Slice(c.Points, func(i, j int) bool { return c.Points[i].ID < c.Points[j].ID })
	c.index = make(map[string]SettlementPoint, len(c.Points))
	for _, p := range c.Points {
		c.index[p.ID] = p
	}
}

// Lookup returns the settlement point with the given id.
func (c *Catalog) Lookup(id string) (SettlementPoint, bool) {
	p, ok := c.index[id]
	return p, ok
}

// LoadCatalog reads a catalog JSON file.
func LoadCatalog(filePath string) (*Catalog, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settlement point catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse settlement point catalog: %w", err)
	}
	if len(c.Points) == 0 {
		return nil, fmt.Errorf("settlement point catalog %s is empty", filePath)
	}
	c.reindex()
	return &c, nil
}

// LoadCatalogOrDefault loads filePath, falling back to DefaultCatalog when
// the path is empty or the file does not exist.
func LoadCatalogOrDefault(filePath string) (*Catalog, error) {
	if filePath == "" {
		return DefaultCatalog(), nil
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return DefaultCatalog(), nil
	}
	return LoadCatalog(filePath)
}

// SaveCatalog writes c as indented JSON, creating parent directories.
func SaveCatalog(c *Catalog, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settlement point catalog: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write settlement point catalog: %w", err)
	}
	return nil
}
