package server

import (
	"os"
	"path"
	"strings"

	"github.com/MeKo-Tech/noisefield/internal/tile"
)

const hiDPISuffix = "@2x"

// parseTilePath parses /tiles/z3_x1_y5.png or /tiles/z3_x1_y5@2x.png.
// Returns tile coordinates, suffix and success flag.
func parseTilePath(requestPath string) (tile.Coords, string, bool) {
	if !strings.HasPrefix(requestPath, "/tiles/") {
		return tile.Coords{}, "", false
	}
	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return tile.Coords{}, "", false
	}
	name := strings.TrimSuffix(base, ".png")
	suffix := ""
	if strings.HasSuffix(name, hiDPISuffix) {
		suffix = hiDPISuffix
		name = strings.TrimSuffix(name, hiDPISuffix)
	}

	coords, err := tile.ParseCoords(name)
	if err != nil {
		return tile.Coords{}, "", false
	}
	return coords, suffix, true
}

func tileSizeForSuffix(base int, suffix string) int {
	if suffix == hiDPISuffix {
		return base * 2
	}
	return base
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !st.IsDir()
}
