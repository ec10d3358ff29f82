package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: runner.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(runner.TickLogEntry{Tick: 2})
	s.RecordRun(runner.RunInfo{RunID: "r"})

	st := s.Stats()
	if st.DropTickTotal != 1 {
		t.Fatalf("DropTickTotal=%d want=1", st.DropTickTotal)
	}
	if st.DropRunTotal != 1 {
		t.Fatalf("DropRunTotal=%d want=1", st.DropRunTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilAndClosedAreNoops(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(runner.TickLogEntry{}); err != nil {
		t.Fatalf("nil WriteTick: %v", err)
	}
	s.RecordRun(runner.RunInfo{})
	if s.Stats() != (Stats{}) {
		t.Fatalf("nil stats not zero")
	}
}

func TestSQLiteIndex_TickSeriesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "index.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	p := tumor.DefaultParams()
	p.Seed = 77
	started := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	s.RecordRun(runner.RunInfo{RunID: "run-a", Seed: 77, Params: p, StartedAt: started})
	for i := 0; i < 10; i++ {
		_ = s.WriteTick(runner.TickLogEntry{
			RunID:          "run-a",
			Tick:           i,
			MTD:            float64(i) / 2,
			TumorCells:     i,
			Dose:           i%4 == 0,
			RemainingDoses: 10 - i,
			Digest:         "d",
			Concentrations: []float64{1},
		})
	}
	_ = s.WriteTick(runner.TickLogEntry{RunID: "run-b", Tick: 0, Digest: "x"})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.WriteTick(runner.TickLogEntry{}); err != nil {
		t.Fatalf("WriteTick after Close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	series, err := s.TickSeries(ctx, "run-a")
	if err != nil {
		t.Fatalf("TickSeries: %v", err)
	}
	if len(series) != 10 {
		t.Fatalf("series len %d want 10", len(series))
	}
	for i, pt := range series {
		if pt.Tick != i || pt.MTD != float64(i)/2 || pt.Dose != (i%4 == 0) {
			t.Fatalf("point %d: %+v", i, pt)
		}
	}

	doses, err := s.DoseTicks(ctx, "run-a")
	if err != nil {
		t.Fatalf("DoseTicks: %v", err)
	}
	if len(doses) != 3 || doses[0] != 0 || doses[1] != 4 || doses[2] != 8 {
		t.Fatalf("doses: %v", doses)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-a" || runs[0].Params != p || !runs[0].StartedAt.Equal(started) {
		t.Fatalf("runs: %+v", runs)
	}
}
