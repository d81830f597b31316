// Package checkpoint persists periodic snapshots of a learner run's
// observation table to a local SQLite database, so a long-running learn
// can be inspected after the fact. Latest loads a snapshot back as plain
// data; nothing in this package rebuilds an obstable.Table from it.
// The table grows monotonically, so a snapshot is just its current S, E,
// and cell map.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/halvard/eralearn/pkg/obstable"
)

// Snapshot is the plain-data form of a Table's S/E/T a run checkpoints,
// encodable by rezi without needing obstable's internal caches.
type Snapshot struct {
	M     int
	S     []string
	E     []string
	Cells map[string][]int8
}

func snapshotOf(tbl *obstable.Table) Snapshot {
	s := Snapshot{M: tbl.M, Cells: map[string][]int8{}}
	for _, w := range tbl.S {
		s.S = append(s.S, w.String())
	}
	for _, w := range tbl.E {
		s.E = append(s.E, w.String())
	}
	for key, row := range tbl.T {
		cells := make([]int8, len(row))
		for i, c := range row {
			cells[i] = int8(c)
		}
		s.Cells[key] = cells
	}
	return s
}

// Store is a SQLite-backed checkpoint log keyed by run ID.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	st := &Store{db: db}
	if err := st.init(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (st *Store) init() error {
	_, err := st.db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		data TEXT NOT NULL,
		created INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);`)
	if err != nil {
		return fmt.Errorf("checkpoint: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (st *Store) Close() error {
	return st.db.Close()
}

// NewRunID mints a fresh run identifier for a learner invocation.
func NewRunID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("checkpoint: generate run ID: %w", err)
	}
	return id.String(), nil
}

// Save writes the table's current S/E/T as the next sequence number under
// runID.
func (st *Store) Save(ctx context.Context, runID string, seq int, tbl *obstable.Table) error {
	data := rezi.EncBinary(snapshotOf(tbl))
	encoded := base64.StdEncoding.EncodeToString(data)

	stmt, err := st.db.PrepareContext(ctx, `INSERT INTO checkpoints (run_id, seq, data, created) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("checkpoint: prepare insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, runID, seq, encoded, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("checkpoint: save run %s seq %d: %w", runID, seq, err)
	}
	return nil
}

// Latest loads the highest-sequence snapshot recorded for runID.
func (st *Store) Latest(ctx context.Context, runID string) (Snapshot, int, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT seq, data FROM checkpoints WHERE run_id = ? ORDER BY seq DESC LIMIT 1`, runID)

	var seq int
	var encoded string
	if err := row.Scan(&seq, &encoded); err != nil {
		return Snapshot{}, 0, fmt.Errorf("checkpoint: load latest for run %s: %w", runID, err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Snapshot{}, 0, fmt.Errorf("checkpoint: decode run %s seq %d: %w", runID, seq, err)
	}

	var snap Snapshot
	if _, err := rezi.DecBinary(data, &snap); err != nil {
		return Snapshot{}, 0, fmt.Errorf("checkpoint: unmarshal run %s seq %d: %w", runID, seq, err)
	}
	return snap, seq, nil
}
