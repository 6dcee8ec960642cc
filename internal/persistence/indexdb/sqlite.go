package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/sim/catalogs"
	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of one puzzle's rounds and
// snapshots. Writes are queued and applied by a single goroutine; when the
// queue is full they are dropped and counted. The round log stays the
// source of truth.
type SQLiteIndex struct {
	db       *sql.DB
	puzzleID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRound    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqRound reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	round    puzzle.RoundLogEntry
	snapshot snapshotReq
}

type snapshotReq struct {
	Path string
	Snap snapshot.SnapshotV1
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropRoundTotal    uint64 `json:"drop_round_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path, puzzleID string) (*SQLiteIndex, error) {
	return openSQLite(path, puzzleID, 65536)
}

func openSQLite(path, puzzleID string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:       db,
		puzzleID: puzzleID,
		ch:       make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS puzzles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			grid_size INTEGER NOT NULL,
			catalog_digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			puzzle_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			digest TEXT NOT NULL,
			voxels INTEGER NOT NULL,
			goals INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			solved INTEGER NOT NULL,
			errors_xy INTEGER NOT NULL,
			errors_xz INTEGER NOT NULL,
			minimal_cardinality INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (puzzle_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS updates (
			puzzle_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			axis TEXT,
			a INTEGER NOT NULL,
			b INTEGER NOT NULL,
			c INTEGER,
			sign INTEGER NOT NULL,
			PRIMARY KEY (puzzle_id, round, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_updates_pos ON updates(puzzle_id, kind, a, b, c);`,
		`CREATE TABLE IF NOT EXISTS solved_transitions (
			puzzle_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			solved INTEGER NOT NULL,
			PRIMARY KEY (puzzle_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			puzzle_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			path TEXT NOT NULL,
			grid_size INTEGER NOT NULL,
			voxels INTEGER NOT NULL,
			goal_xy INTEGER NOT NULL,
			goal_xz INTEGER NOT NULL,
			solved INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (puzzle_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS state_voxels (
			puzzle_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			weight INTEGER NOT NULL,
			PRIMARY KEY (puzzle_id, x, y, z)
		);`,
		`CREATE TABLE IF NOT EXISTS state_goals (
			puzzle_id TEXT NOT NULL,
			axis TEXT NOT NULL,
			a INTEGER NOT NULL,
			b INTEGER NOT NULL,
			weight INTEGER NOT NULL,
			PRIMARY KEY (puzzle_id, axis, a, b)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRoundTotal:    s.dropRound.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// WriteRound queues one round. It never blocks the caller.
func (s *SQLiteIndex) WriteRound(entry puzzle.RoundLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqRound, round: entry}:
	default:
		s.dropRound.Add(1)
	}
	return nil
}

// RecordSnapshot queues a snapshot row and replaces the state tables with
// the snapshot contents.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: snapshotReq{Path: path, Snap: snap}}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertPuzzles stores the puzzle catalog and the applied tuning. It runs
// synchronously at startup.
func (s *SQLiteIndex) UpsertPuzzles(cat *catalogs.PuzzleCatalog, tune tuning.Tuning) error {
	if s == nil || cat == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	tb, _ := json.Marshal(tune)
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning',?)`, string(tb)); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO puzzles(id,title,grid_size,catalog_digest,json,updated_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range cat.IDs() {
		p := cat.ByID[id]
		b, _ := json.Marshal(p)
		if _, err := stmt.Exec(p.ID, p.Title, p.GridSize, cat.Digest, string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastSolved = -1
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(q string, args ...any) bool {
		if _, err := tx.Exec(q, args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRound:
			if !s.applyRound(exec, r.round, &lastSolved) {
				continue
			}
		case reqSnapshot:
			if !s.applySnapshot(exec, r.snapshot) {
				continue
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

type execFunc func(q string, args ...any) bool

func (s *SQLiteIndex) applyRound(exec execFunc, e puzzle.RoundLogEntry, lastSolved *int) bool {
	raw, _ := json.Marshal(e)
	round := int64(e.Round)
	if !exec(`INSERT OR REPLACE INTO rounds(puzzle_id,round,digest,voxels,goals,rejected,solved,errors_xy,errors_xz,minimal_cardinality,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		s.puzzleID, round, e.Digest, len(e.Voxels), len(e.Goals), e.Rejected, boolInt(e.Solved),
		e.ErrorSizes[0], e.ErrorSizes[1], e.MinimalCardinality, string(raw)) {
		return false
	}
	seq := 0
	for _, u := range e.Voxels {
		if !exec(`INSERT OR REPLACE INTO updates(puzzle_id,round,seq,kind,axis,a,b,c,sign) VALUES(?,?,?,'VOXEL',NULL,?,?,?,?)`,
			s.puzzleID, round, seq, u.Voxel.X, u.Voxel.Y, u.Voxel.Z, u.Sign) {
			return false
		}
		seq++
	}
	for _, u := range e.Goals {
		if !exec(`INSERT OR REPLACE INTO updates(puzzle_id,round,seq,kind,axis,a,b,c,sign) VALUES(?,?,?,'GOAL',?,?,?,NULL,?)`,
			s.puzzleID, round, seq, u.Axis.String(), u.Square.A, u.Square.B, u.Sign) {
			return false
		}
		seq++
	}
	solved := boolInt(e.Solved)
	if solved != *lastSolved {
		if !exec(`INSERT OR REPLACE INTO solved_transitions(puzzle_id,round,solved) VALUES(?,?,?)`, s.puzzleID, round, solved) {
			return false
		}
		*lastSolved = solved
	}
	return true
}

func (s *SQLiteIndex) applySnapshot(exec execFunc, r snapshotReq) bool {
	sn := r.Snap
	if !exec(`INSERT OR REPLACE INTO snapshots(puzzle_id,round,path,grid_size,voxels,goal_xy,goal_xz,solved,digest) VALUES(?,?,?,?,?,?,?,?,?)`,
		s.puzzleID, int64(sn.Header.Round), r.Path, sn.GridSize, len(sn.Voxels), len(sn.GoalXY), len(sn.GoalXZ), boolInt(sn.Solved), sn.Digest) {
		return false
	}
	if !exec(`DELETE FROM state_voxels WHERE puzzle_id=?`, s.puzzleID) || !exec(`DELETE FROM state_goals WHERE puzzle_id=?`, s.puzzleID) {
		return false
	}
	for _, v := range sn.Voxels {
		if !exec(`INSERT INTO state_voxels(puzzle_id,x,y,z,weight) VALUES(?,?,?,?,?)`, s.puzzleID, v.X, v.Y, v.Z, v.W) {
			return false
		}
	}
	goals := []struct {
		axis string
		sq   []snapshot.SquareV1
	}{{"XY", sn.GoalXY}, {"XZ", sn.GoalXZ}}
	for _, g := range goals {
		for _, q := range g.sq {
			if !exec(`INSERT INTO state_goals(puzzle_id,axis,a,b,weight) VALUES(?,?,?,?,?)`, s.puzzleID, g.axis, q.A, q.B, q.W) {
				return false
			}
		}
	}
	return true
}
