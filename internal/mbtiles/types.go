// Package mbtiles stores rendered noise tiles in MBTiles (SQLite) databases.
package mbtiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrTileNotFound is returned by Reader.ReadTile for missing tiles.
var ErrTileNotFound = errors.New("tile not found")

// noiseKey is the metadata row holding the JSON noise configuration.
const noiseKey = "noise"

// Metadata contains MBTiles metadata fields.
type Metadata struct {
	Name        string `json:"name"`   // Human-readable tileset identifier
	Format      string `json:"format"` // Tile data type, always png here
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"` // "baselayer" or "overlay"
	Version     string `json:"version,omitempty"`
	MinZoom     int    `json:"minzoom"`
	MaxZoom     int    `json:"maxzoom"`
	// Noise is the JSON-encoded configuration the tiles were rendered with.
	Noise string `json:"noise,omitempty"`
}

// SetNoise stores v as the JSON noise configuration.
func (m *Metadata) SetNoise(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode noise metadata: %w", err)
	}
	m.Noise = string(data)
	return nil
}

// DecodeNoise unmarshals the noise configuration into v.
func (m Metadata) DecodeNoise(v any) error {
	if m.Noise == "" {
		return errors.New("no noise metadata")
	}
	if err := json.Unmarshal([]byte(m.Noise), v); err != nil {
		return fmt.Errorf("failed to decode noise metadata: %w", err)
	}
	return nil
}

// ToMap converts Metadata to a map for database insertion. Zoom levels are
// always present; empty strings are left out.
func (m Metadata) ToMap() map[string]string {
	result := map[string]string{
		"minzoom": strconv.Itoa(m.MinZoom),
		"maxzoom": strconv.Itoa(m.MaxZoom),
	}

	set := func(key, value string) {
		if value != "" {
			result[key] = value
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("description", m.Description)
	set("type", m.Type)
	set("version", m.Version)
	set(noiseKey, m.Noise)

	return result
}

// fromMap is the inverse of ToMap. Unparsable zoom levels are left at zero.
func fromMap(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Format:      values["format"],
		Description: values["description"],
		Type:        values["type"],
		Version:     values["version"],
		Noise:       values[noiseKey],
	}
	if i, err := strconv.Atoi(values["minzoom"]); err == nil {
		meta.MinZoom = i
	}
	if i, err := strconv.Atoi(values["maxzoom"]); err == nil {
		meta.MaxZoom = i
	}
	return meta
}
