package mbtiles

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MeKo-Tech/noisefield/internal/tile"
)

// DefaultBatchSize is the number of distinct tiles buffered before a flush.
const DefaultBatchSize = 100

const schema = `
CREATE TABLE IF NOT EXISTS metadata (name TEXT NOT NULL, value TEXT);
CREATE UNIQUE INDEX IF NOT EXISTS metadata_name ON metadata (name);
CREATE TABLE IF NOT EXISTS tiles (
	zoom_level  INTEGER NOT NULL,
	tile_column INTEGER NOT NULL,
	tile_row    INTEGER NOT NULL,
	tile_data   BLOB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
`

// writerPragmas favour bulk inserts from a single connection.
const writerPragmas = "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=temp_store(MEMORY)"

// Writer stores rendered tiles in an MBTiles database. Writing into an
// existing tileset adds to it; a tile written twice keeps the last data.
// It is safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	pending   map[tile.Coords][]byte
	batchSize int
	written   int
}

// New opens or creates the tileset at path and replaces its metadata rows
// with metadata.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path+writerPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	w := &Writer{
		db:        db,
		path:      path,
		pending:   make(map[tile.Coords][]byte, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}
	if err := w.setMetadata(metadata.ToMap()); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) setMetadata(values map[string]string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin metadata update: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	for key, value := range values {
		_, err := tx.Exec(`INSERT INTO metadata (name, value) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return fmt.Errorf("failed to store metadata %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

// WriteTile buffers the PNG for an XYZ tile and flushes once the batch is full.
func (w *Writer) WriteTile(z, x, y int, data []byte) error {
	if z < 0 || x < 0 || y < 0 || z > tile.MaxZoom {
		return fmt.Errorf("tile %d/%d/%d out of range", z, x, y)
	}
	c := tile.NewCoords(uint32(z), uint32(x), uint32(y))
	if !c.Valid() {
		return fmt.Errorf("tile %s out of range", c)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[c] = data
	if len(w.pending) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush commits buffered tiles in one transaction.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare(`INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)
		ON CONFLICT (zoom_level, tile_column, tile_row) DO UPDATE SET tile_data = excluded.tile_data`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for c, data := range w.pending {
		z, y := int(c.Z), int(c.Y)
		if _, err := stmt.Exec(z, int(c.X), tmsRow(z, y), data); err != nil {
			return fmt.Errorf("failed to insert tile %s: %w", c, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tiles: %w", err)
	}

	w.written += len(w.pending)
	clear(w.pending)
	return nil
}

// Written returns the number of tiles committed through this writer.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Path returns the database file path.
func (w *Writer) Path() string {
	return w.path
}

// tmsRow flips an XYZ row into the TMS row stored in the tiles table.
func tmsRow(z, y int) int {
	return (1 << z) - 1 - y
}

// Close flushes pending tiles, sets minzoom and maxzoom to the zoom levels
// actually stored and closes the database.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.db == nil {
		return nil
	}
	db := w.db
	defer func() { w.db = nil }()

	if err := w.flushLocked(); err != nil {
		db.Close()
		return err
	}
	if err := w.recordZoomRange(); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (w *Writer) recordZoomRange() error {
	var lo, hi sql.NullInt64
	if err := w.db.QueryRow("SELECT MIN(zoom_level), MAX(zoom_level) FROM tiles").Scan(&lo, &hi); err != nil {
		return fmt.Errorf("failed to read zoom range: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return nil
	}
	return w.setMetadata(map[string]string{
		"minzoom": strconv.FormatInt(lo.Int64, 10),
		"maxzoom": strconv.FormatInt(hi.Int64, 10),
	})
}
