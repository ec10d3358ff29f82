// Package replay re-runs a logged run from its recorded parameters and checks every logged
// tick digest against a fresh simulation.
package replay

import (
	"context"
	"errors"
	"fmt"

	persistlog "github.com/kmarszal/mesa-tumor-model/internal/persistence/log"
	"github.com/kmarszal/mesa-tumor-model/internal/persistence/snapshot"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
)

// ErrDigestMismatch marks a replay that diverged from its log.
var ErrDigestMismatch = errors.New("digest mismatch")

type Options struct {
	// FromTick starts digest checks at this tick (inclusive).
	FromTick int
	// ToTick stops after this tick (inclusive); 0 checks the whole log.
	ToTick int
	// NoSnapshots forces a replay from tick 0 even when a snapshot precedes FromTick.
	NoSnapshots bool
}

type Result struct {
	RunID    string `json:"run_id"`
	Checked  int    `json:"checked"`
	LastTick int    `json:"last_tick"`
	// FromSnapshot is the snapshot tick the replay resumed from, or -1.
	FromSnapshot int `json:"from_snapshot"`
}

// Verify replays runDir and returns how many ticks were checked.
func Verify(ctx context.Context, runDir string, opts Options) (Result, error) {
	info, err := persistlog.ReadRunInfo(runDir)
	if err != nil {
		return Result{}, fmt.Errorf("read run info: %w", err)
	}
	res := Result{RunID: info.RunID, LastTick: -1, FromSnapshot: -1}

	cfg := runner.Config{Params: info.Params, RunID: info.RunID}
	if opts.FromTick > 0 && !opts.NoSnapshots {
		snap, ok, err := snapshot.Latest(runDir, opts.FromTick)
		if err != nil {
			return res, fmt.Errorf("snapshot: %w", err)
		}
		if ok {
			if snap.Header.RunID != info.RunID {
				return res, fmt.Errorf("snapshot at tick %d belongs to run %q", snap.Header.Tick, snap.Header.RunID)
			}
			cfg.Resume = &snap.Checkpoint
			res.FromSnapshot = snap.Header.Tick
		}
	}
	r, err := runner.New(cfg)
	if err != nil {
		return res, fmt.Errorf("runner: %w", err)
	}

	errDone := errors.New("done")
	prev := -1
	err = persistlog.ReadTickLog(runDir, func(entry runner.TickLogEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.Tick <= prev {
			return fmt.Errorf("tick %d logged out of order (after %d)", entry.Tick, prev)
		}
		prev = entry.Tick
		if opts.ToTick != 0 && entry.Tick > opts.ToTick {
			return errDone
		}
		// Ticks before a resumed snapshot are already applied.
		if entry.Tick < r.CurrentTick() {
			return nil
		}
		// Sampled logs skip ticks; step through them unchecked.
		for r.CurrentTick() < entry.Tick {
			if _, err := r.StepOnce(); err != nil {
				return err
			}
		}
		got, err := r.StepOnce()
		if err != nil {
			return err
		}
		res.LastTick = got.Tick
		if got.Tick < opts.FromTick {
			return nil
		}
		res.Checked++
		if got.Digest != entry.Digest {
			return fmt.Errorf("%w at tick %d: got=%s want=%s", ErrDigestMismatch, got.Tick, got.Digest, entry.Digest)
		}
		if got.MTD != entry.MTD {
			return fmt.Errorf("%w at tick %d: mtd got=%v want=%v", ErrDigestMismatch, got.Tick, got.MTD, entry.MTD)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		return res, err
	}
	return res, nil
}
