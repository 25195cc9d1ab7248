// Package tile addresses square tiles of the unit noise domain with z/x/y
// coordinates. Zoom 0 is the whole square [0,1]², every zoom level halves the
// tile edge. X grows along the domain's X axis and Y along its Z axis.
package tile

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level accepted by ParseCoords and Range.
const MaxZoom = 24

// MaxRangeTiles caps how many tiles Range and Subtree hand out at once.
const MaxRangeTiles = 1 << 22

// ErrTooManyTiles is returned when a request would exceed MaxRangeTiles.
var ErrTooManyTiles = errors.New("too many tiles")

// Coords represents a tile coordinate (z/x/y)
type Coords struct {
	Z uint32 // Zoom level
	X uint32 // X coordinate (column)
	Y uint32 // Y coordinate (row)
}

// NewCoords creates a new Coords from zoom, x, y values
func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// String returns the tile coordinate as a string in format "z{zoom}_x{x}_y{y}"
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Path returns the file path for this tile
func (c Coords) Path(extension string) string {
	return fmt.Sprintf("%s.%s", c.String(), extension)
}

// Tile returns the maptile.Tile for this coordinate
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

func fromTile(t maptile.Tile) Coords {
	return Coords{Z: uint32(t.Z), X: t.X, Y: t.Y}
}

// Valid reports whether x and y lie inside the grid of the tile's zoom level.
func (c Coords) Valid() bool {
	return c.Z <= MaxZoom && c.Tile().Valid()
}

// Bounds returns the part of the unit square covered by the tile.
func (c Coords) Bounds() orb.Bound {
	n := float64(uint64(1) << c.Z)
	return orb.Bound{
		Min: orb.Point{float64(c.X) / n, float64(c.Y) / n},
		Max: orb.Point{float64(c.X+1) / n, float64(c.Y+1) / n},
	}
}

// Parent returns the tile one zoom level up. The root tile is its own parent.
func (c Coords) Parent() Coords {
	return fromTile(c.Tile().Parent())
}

// Children returns the four tiles one zoom level down.
func (c Coords) Children() []Coords {
	tiles := c.Tile().Children()
	out := make([]Coords, len(tiles))
	for i, t := range tiles {
		out[i] = fromTile(t)
	}
	return out
}

// ParseCoords parses a tile string like "z3_x5_y2" into Coords. The input must
// be exactly the form String produces.
func ParseCoords(s string) (Coords, error) {
	var c Coords
	n, _ := fmt.Sscanf(s, "z%d_x%d_y%d", &c.Z, &c.X, &c.Y)
	if n != 3 || c.String() != s {
		return Coords{}, fmt.Errorf("invalid tile coordinate format: %q", s)
	}
	if !c.Valid() {
		return Coords{}, fmt.Errorf("tile coordinate out of range: %s", s)
	}
	return c, nil
}

// Ancestors returns the chain of parents from zoom c.Z-1 up to the root.
func (c Coords) Ancestors() []Coords {
	out := make([]Coords, 0, c.Z)
	for cur := c; cur.Z > 0; {
		cur = cur.Parent()
		out = append(out, cur)
	}
	return out
}

// Subtree returns the tiles at zoom z covered by c, in row-major order of
// expansion. z must not be above c.Z.
func (c Coords) Subtree(z uint32) ([]Coords, error) {
	if z < c.Z {
		return nil, fmt.Errorf("zoom %d is above tile %s", z, c)
	}
	if z > MaxZoom {
		return nil, fmt.Errorf("zoom %d exceeds maximum %d", z, MaxZoom)
	}
	if d := z - c.Z; d > 11 || 1<<(2*d) > MaxRangeTiles {
		return nil, fmt.Errorf("%w: %s down to zoom %d", ErrTooManyTiles, c, z)
	}

	level := []Coords{c}
	for level[0].Z < z {
		next := make([]Coords, 0, 4*len(level))
		for _, t := range level {
			next = append(next, t.Children()...)
		}
		level = next
	}
	return level, nil
}

// Range returns every tile from zoom zMin through zMax, zoom level by zoom
// level, columns outer.
func Range(zMin, zMax uint32) ([]Coords, error) {
	if zMin > zMax {
		return nil, fmt.Errorf("invalid zoom range %d-%d", zMin, zMax)
	}
	if zMax > MaxZoom {
		return nil, fmt.Errorf("zoom %d exceeds maximum %d", zMax, MaxZoom)
	}
	if n := Count(zMin, zMax); n > MaxRangeTiles {
		return nil, fmt.Errorf("%w: zoom %d-%d holds %d tiles, limit is %d", ErrTooManyTiles, zMin, zMax, n, MaxRangeTiles)
	}

	root := maptile.New(0, 0, 0)
	tiles := maptile.ChildrenInZoomRange(root, maptile.Zoom(zMin), maptile.Zoom(zMax))
	out := make([]Coords, len(tiles))
	for i, t := range tiles {
		out[i] = fromTile(t)
	}
	return out, nil
}

// Count returns the number of tiles Range would return, without allocating them.
func Count(zMin, zMax uint32) int {
	if zMin > zMax {
		return 0
	}
	count := 0
	for z := zMin; z <= zMax; z++ {
		count += 1 << (2 * z)
	}
	return count
}
