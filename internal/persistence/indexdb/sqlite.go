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

	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
)

// SQLiteIndex is a queryable secondary index of runs and ticks. Writes are queued to one writer
// goroutine and batched into transactions; the tick log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick atomic.Uint64
	dropRun  atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqRun
)

type req struct {
	kind reqKind

	tick runner.TickLogEntry
	run  runner.RunInfo
}

// Stats reports queue pressure for metrics.
type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTickTotal uint64 `json:"drop_tick_total"`
	DropRunTotal  uint64 `json:"drop_run_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only tick workload; NORMAL sync is enough for a secondary index.
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
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			params_json TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			mtd REAL NOT NULL,
			tumor_cells INTEGER NOT NULL,
			baseline INTEGER NOT NULL,
			proliferative INTEGER NOT NULL,
			quiescent INTEGER NOT NULL,
			damaged INTEGER NOT NULL,
			dead INTEGER NOT NULL,
			dose INTEGER NOT NULL,
			transitions INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS doses (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			remaining INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
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
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTickTotal: s.dropTick.Load(),
		DropRunTotal:  s.dropRun.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry runner.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	entry.Concentrations = nil
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordRun(info runner.RunInfo) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqRun, run: info}:
	default:
		s.dropRun.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,width,height,params_json,started_at) VALUES(?,?,?,?,?,?)`)
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(run_id,tick,mtd,tumor_cells,baseline,proliferative,quiescent,damaged,dead,dose,transitions,digest) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertDose, _ := s.db.Prepare(`INSERT OR REPLACE INTO doses(run_id,tick,remaining) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertTick, insertDose} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
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
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	idle := time.NewTicker(commitMaxWait)
	defer idle.Stop()

	for {
		var r req
		select {
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		case <-idle.C:
			flushIfNeeded()
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRun:
			pj, _ := json.Marshal(r.run.Params)
			if insertRun != nil {
				if _, err := tx.Stmt(insertRun).Exec(
					r.run.RunID,
					r.run.Seed,
					r.run.Params.Width,
					r.run.Params.Height,
					string(pj),
					r.run.StartedAt.UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqTick:
			e := r.tick
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(
					e.RunID,
					e.Tick,
					e.MTD,
					e.TumorCells,
					e.Counts.Baseline,
					e.Counts.Proliferative,
					e.Counts.Quiescent,
					e.Counts.DamagedQuiescent,
					e.Counts.Dead,
					boolInt(e.Dose),
					e.Transitions,
					e.Digest,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			if e.Dose && insertDose != nil {
				if _, err := tx.Stmt(insertDose).Exec(e.RunID, e.Tick, e.RemainingDoses); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
