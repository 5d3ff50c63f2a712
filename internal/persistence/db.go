// Package persistence provides SQLite-based catalog snapshots.
package persistence

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/catalog"
	"github.com/warrook/Gate/internal/galaxy"
)

// Metadata keys written by SaveCatalog.
const (
	MetaRunID = "run_id"
	MetaSeed  = "seed"
	MetaGates = "gates"
)

// DB wraps a SQLite connection for catalog persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS galaxies (
		idx INTEGER PRIMARY KEY,
		radius REAL NOT NULL,
		height REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gates (
		galaxy INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		grid_x REAL NOT NULL,
		grid_y REAL NOT NULL,
		grid_z REAL NOT NULL,
		address TEXT,
		address_bin BLOB,
		kind INTEGER NOT NULL,
		in_range INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		PRIMARY KEY (galaxy, idx)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_gates_address ON gates(address);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type galaxyRow struct {
	Index  int     `db:"idx"`
	Radius float64 `db:"radius"`
	Height float64 `db:"height"`
}

type gateRow struct {
	Galaxy     int     `db:"galaxy"`
	Index      int     `db:"idx"`
	X          float64 `db:"x"`
	Y          float64 `db:"y"`
	Z          float64 `db:"z"`
	GridX      float64 `db:"grid_x"`
	GridY      float64 `db:"grid_y"`
	GridZ      float64 `db:"grid_z"`
	Address    *string `db:"address"`
	AddressBin []byte  `db:"address_bin"`
	Kind       uint8   `db:"kind"`
	InRange    bool    `db:"in_range"`
	Visited    int8    `db:"visited"`
}

// SaveGalaxies writes galaxies and their gates to the database (full replace).
func (db *DB) SaveGalaxies(gals []*galaxy.Galaxy) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveGalaxies(tx, gals); err != nil {
		return err
	}
	return tx.Commit()
}

func saveGalaxies(tx *sqlx.Tx, gals []*galaxy.Galaxy) error {
	if _, err := tx.Exec("DELETE FROM gates"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM galaxies"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO gates
		(galaxy, idx, x, y, z, grid_x, grid_y, grid_z,
		 address, address_bin, kind, in_range, visited)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, gal := range gals {
		if _, err := tx.Exec("INSERT INTO galaxies (idx, radius, height) VALUES (?, ?, ?)",
			gal.Index, gal.Radius, gal.Height); err != nil {
			return fmt.Errorf("insert galaxy %d: %w", gal.Index, err)
		}

		for _, g := range gal.Gates {
			var text *string
			var bin []byte
			if g.StaticAddress != nil {
				s := g.StaticAddress.String()
				text = &s
				var err error
				if bin, err = g.StaticAddress.MarshalBinary(); err != nil {
					return fmt.Errorf("encode address of gate %d/%d: %w", gal.Index, g.Index, err)
				}
			}

			_, err := stmt.Exec(
				gal.Index, g.Index,
				g.Position.X, g.Position.Y, g.Position.Z,
				g.GridPosition.X, g.GridPosition.Y, g.GridPosition.Z,
				text, bin, uint8(g.Kind), g.InRange, int8(g.Visited),
			)
			if err != nil {
				return fmt.Errorf("insert gate %d/%d: %w", gal.Index, g.Index, err)
			}
		}
	}
	return nil
}

// SaveCatalog performs a full save of the catalog and stamps a new run id,
// which it returns. Galaxies and metadata commit together or not at all.
func (db *DB) SaveCatalog(cat *catalog.Catalog, seed int64) (string, error) {
	st := cat.Stats()
	slog.Info("saving catalog", "galaxies", st.Galaxies, "gates", st.Gates)

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", fmt.Errorf("save catalog: %w", err)
	}
	defer tx.Rollback()

	if err := cat.View(func(gals []*galaxy.Galaxy) error { return saveGalaxies(tx, gals) }); err != nil {
		return "", fmt.Errorf("save galaxies: %w", err)
	}

	runID := uuid.New().String()
	meta := map[string]string{
		MetaRunID: runID,
		MetaSeed:  strconv.FormatInt(seed, 10),
		MetaGates: strconv.Itoa(st.Gates),
	}
	for k, v := range meta {
		if err := saveMeta(tx, k, v); err != nil {
			return "", fmt.Errorf("save meta %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save catalog: %w", err)
	}

	slog.Info("catalog saved", "run_id", runID)
	return runID, nil
}

// GalaxyIndexes lists the stored galaxies in order.
func (db *DB) GalaxyIndexes() ([]int, error) {
	var idx []int
	err := db.conn.Select(&idx, "SELECT idx FROM galaxies ORDER BY idx")
	return idx, err
}

// LoadGalaxy rebuilds a stored galaxy with its gates and cached addresses.
func (db *DB) LoadGalaxy(index int) (*galaxy.Galaxy, error) {
	var gr galaxyRow
	if err := db.conn.Get(&gr, "SELECT idx, radius, height FROM galaxies WHERE idx = ?", index); err != nil {
		return nil, fmt.Errorf("load galaxy %d: %w", index, err)
	}
	gal, err := galaxy.New(gr.Index, gr.Radius, gr.Height)
	if err != nil {
		return nil, fmt.Errorf("load galaxy %d: %w", index, err)
	}

	var rows []gateRow
	if err := db.conn.Select(&rows, `SELECT galaxy, idx, x, y, z, grid_x, grid_y, grid_z,
		address, address_bin, kind, in_range, visited
		FROM gates WHERE galaxy = ? ORDER BY idx`, index); err != nil {
		return nil, fmt.Errorf("load gates of galaxy %d: %w", index, err)
	}

	for _, r := range rows {
		g := gal.Add(r3.Vector{X: r.X, Y: r.Y, Z: r.Z})
		if g.Index != r.Index {
			return nil, fmt.Errorf("load galaxy %d: gate %d stored at position %d", index, r.Index, g.Index)
		}
		g.GridPosition = r3.Vector{X: r.GridX, Y: r.GridY, Z: r.GridZ}
		g.Kind = galaxy.Kind(r.Kind)
		g.InRange = r.InRange
		g.Visited = galaxy.Visited(r.Visited)

		if len(r.AddressBin) > 0 {
			var a address.Address
			if err := a.UnmarshalBinary(r.AddressBin); err != nil {
				return nil, fmt.Errorf("load gate %d/%d: %w", index, r.Index, err)
			}
			g.StaticAddress = &a
		}
	}

	slog.Debug("galaxy loaded", "galaxy", index, "gates", len(gal.Gates))
	return gal, nil
}

// GateByAddress finds the stored gate whose cached address has the given
// text form.
func (db *DB) GateByAddress(text string) (galaxyIndex, gateIndex int, err error) {
	var r struct {
		Galaxy int `db:"galaxy"`
		Index  int `db:"idx"`
	}
	err = db.conn.Get(&r, "SELECT galaxy, idx FROM gates WHERE address = ? ORDER BY galaxy, idx LIMIT 1", text)
	return r.Galaxy, r.Index, err
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

func saveMeta(e sqlx.Execer, key, value string) error {
	_, err := e.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}
