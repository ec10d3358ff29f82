package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kmarszal/mesa-tumor-model/internal/logging"
	"github.com/kmarszal/mesa-tumor-model/internal/persistence/indexdb"
	persistlog "github.com/kmarszal/mesa-tumor-model/internal/persistence/log"
	"github.com/kmarszal/mesa-tumor-model/internal/persistence/objectstore"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/tuning"
)

// runFlags are shared by run and serve.
type runFlags struct {
	config    string
	ticks     int
	seed      int64
	dataDir   string
	runID     string
	disableDB bool
}

func (f *runFlags) register(cmd *cobra.Command, defaultTicks int) {
	cmd.Flags().StringVar(&f.config, "config", "./configs/tuning.yaml", "path to tuning.yaml (empty for built-in defaults)")
	cmd.Flags().IntVar(&f.ticks, "ticks", defaultTicks, "ticks to run (0 = until stopped)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "override the configured seed")
	cmd.Flags().StringVar(&f.dataDir, "data", "./data", "runtime data directory")
	cmd.Flags().StringVar(&f.runID, "run_id", "", "run id (default: random UUID)")
	cmd.Flags().BoolVar(&f.disableDB, "disable_db", false, "disable the SQLite tick index")
}

func cmdLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log_level")
	return logging.NewLogger(level, cmd.ErrOrStderr())
}

// session is one configured run with its sinks.
type session struct {
	runDir  string
	tuning  tuning.Tuning
	runner  *runner.Runner
	tickLog *persistlog.TickLogger
	index   *indexdb.SQLiteIndex
	mirror  *objectstore.Mirror
}

func openSession(cmd *cobra.Command, f *runFlags, logger *slog.Logger) (*session, error) {
	tu, err := tuning.Load(f.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		tu.Model.Seed = f.seed
	}
	if err := tu.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	runID := strings.TrimSpace(f.runID)
	if runID == "" {
		runID = uuid.NewString()
	}
	mirror, err := buildMirror(f.dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}
	runDir := filepath.Join(f.dataDir, "runs", runID)
	s := &session{runDir: runDir, tuning: tu, mirror: mirror}
	s.tickLog = persistlog.NewTickLogger(s.runDir, tu.SegmentTicks)
	if !f.disableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(f.dataDir, "index.sqlite"))
		if err != nil {
			logger.Warn("index db disabled", "err", err)
		} else {
			s.index = idx
		}
	}

	var sink runner.TickLogger = s.tickLog
	if s.index != nil {
		sink = runner.MultiTickLogger{s.tickLog, s.index}
	}
	s.runner, err = runner.New(runner.Config{
		Params:               tu.Params(),
		RunID:                runID,
		TickRateHz:           tu.TickRateHz,
		LogEveryTicks:        tu.LogEveryTicks,
		RecordConcentrations: tu.RecordConcentrations,
		MaxTicks:             f.ticks,
		SnapshotDir:          runDir,
		SnapshotEveryTicks:   tu.SnapshotEveryTicks,
		OnSnapshot:           mirror.Enqueue,
		TickLogger:           sink,
		Logger:               logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := persistlog.WriteRunInfo(s.runDir, s.runner.Info()); err != nil {
		s.Close()
		return nil, fmt.Errorf("write run info: %w", err)
	}
	if s.index != nil {
		s.index.RecordRun(s.runner.Info())
	}
	s.mirror.Enqueue(filepath.Join(runDir, "run.json"))
	logger.Info("run configured", "run_id", runID, "dir", s.runDir, "config", f.config)
	return s, nil
}

// Close flushes the tick log and index, then mirrors the closed tick segments.
func (s *session) Close() {
	if s.tickLog != nil {
		_ = s.tickLog.Close()
	}
	if s.index != nil {
		_ = s.index.Close()
	}
	if s.mirror == nil {
		return
	}
	segments, _ := persistlog.TickSegments(s.runDir)
	for _, path := range segments {
		s.mirror.Enqueue(path)
	}
	s.mirror.Close()
}
