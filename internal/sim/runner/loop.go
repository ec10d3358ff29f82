package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/kmarszal/mesa-tumor-model/internal/logging"
	"github.com/kmarszal/mesa-tumor-model/internal/persistence/snapshot"
)

// Run paces ticks at TickRateHz and serves observer and cell requests between ticks.
// It returns nil when stopped or when MaxTicks is reached, ctx.Err() on cancellation,
// and the engine fault if a tick fails.
func (r *Runner) Run(ctx context.Context) error {
	defer r.finish()

	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info("run started", "seed", r.cfg.Params.Seed, "width", r.cfg.Params.Width, "height", r.cfg.Params.Height, "tick_rate_hz", r.cfg.TickRateHz)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("run cancelled", "tick", r.CurrentTick())
			return ctx.Err()
		case <-r.stop:
			r.sim.Stop()
			r.log.Info("run stopped", "tick", r.CurrentTick())
			return nil
		case req := <-r.observerJoin:
			r.handleObserverJoin(req)
		case req := <-r.observerSub:
			r.handleObserverSubscribe(req)
		case id := <-r.observerLeave:
			r.handleObserverLeave(id)
		case req := <-r.cellReq:
			r.handleCellReq(req)
		case <-ticker.C:
			if !r.sim.Running() {
				return r.sim.Err()
			}
			if _, err := r.StepOnce(); err != nil {
				r.log.Error("tick failed", "tick", r.CurrentTick(), "err", err)
				return err
			}
			if r.cfg.MaxTicks > 0 && r.CurrentTick() >= r.cfg.MaxTicks {
				r.log.Info("run finished", "ticks", r.CurrentTick())
				return nil
			}
		}
	}
}

// RunTicks steps synchronously without pacing until n more ticks completed, the engine stops
// running, Stop is called, or ctx ends. Observers are not served.
func (r *Runner) RunTicks(ctx context.Context, n int) error {
	defer r.finish()
	r.log.Info("headless run", "ticks", n, "seed", r.cfg.Params.Seed)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-r.stop:
			r.sim.Stop()
			return nil
		default:
		}
		if !r.sim.Running() {
			return r.sim.Err()
		}
		if _, err := r.StepOnce(); err != nil {
			return err
		}
	}
	r.log.Info("headless run finished", "tick", r.CurrentTick(), "mtd", r.Metrics().MTD)
	return nil
}

// StepOnce advances the simulation by a single tick and logs and broadcasts it.
// It is primarily intended for deterministic replays/tests; use it only from the goroutine
// that owns the runner.
func (r *Runner) StepOnce() (TickLogEntry, error) {
	start := time.Now()
	m, err := r.sim.Step()
	dur := time.Since(start)
	if err != nil {
		r.publishMetrics(m, dur)
		return TickLogEntry{}, fmt.Errorf("run %s: %w", r.runID, err)
	}
	r.tick.Store(int64(r.sim.State().Step))

	entry := TickLogEntry{
		RunID:          r.runID,
		Tick:           m.Tick,
		MTD:            m.MTD,
		TumorCells:     m.TumorCells,
		Counts:         m.Counts,
		Dose:           m.DoseApplied,
		RemainingDoses: m.RemainingDoses,
		Transitions:    len(r.sim.LastSweep().Transitions),
		Digest:         r.sim.Digest(),
	}
	if r.cfg.RecordConcentrations {
		entry.Concentrations = m.Concentrations
	}
	if m.DoseApplied {
		r.log.Debug("dose applied", "tick", m.Tick, "remaining", m.RemainingDoses)
	}
	r.log.Log(context.Background(), logging.LevelTrace, "tick", "tick", m.Tick, "mtd", m.MTD, "tumor_cells", m.TumorCells)

	if r.tickLogger != nil && m.Tick%r.cfg.LogEveryTicks == 0 {
		if err := r.tickLogger.WriteTick(entry); err != nil {
			r.log.Warn("tick log write failed", "tick", m.Tick, "err", err)
		}
	}
	r.broadcastFrame(entry)
	r.publishMetrics(m, dur)
	if r.cfg.SnapshotEveryTicks > 0 && r.cfg.SnapshotDir != "" && r.CurrentTick()%r.cfg.SnapshotEveryTicks == 0 {
		if err := r.WriteSnapshot(); err != nil {
			r.log.Warn("snapshot failed", "tick", r.CurrentTick(), "err", err)
		}
	}
	return entry, nil
}

// WriteSnapshot checkpoints the simulation under SnapshotDir. Loop goroutine only.
func (r *Runner) WriteSnapshot() error {
	if r.cfg.SnapshotDir == "" {
		return fmt.Errorf("run %s: no snapshot dir", r.runID)
	}
	cp, err := r.sim.Checkpoint()
	if err != nil {
		return err
	}
	tick := cp.Tick()
	path := snapshot.Path(r.cfg.SnapshotDir, tick)
	if err := snapshot.WriteSnapshot(path, snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: snapshot.Version, RunID: r.runID, Tick: tick, Digest: r.sim.Digest()},
		Checkpoint: cp,
	}); err != nil {
		return err
	}
	r.log.Debug("snapshot written", "tick", tick, "path", path)
	if r.cfg.OnSnapshot != nil {
		r.cfg.OnSnapshot(path)
	}
	return nil
}

func (r *Runner) finish() {
	r.doneOnce.Do(func() {
		for id := range r.observers {
			r.handleObserverLeave(id)
		}
		close(r.done)
	})
}
