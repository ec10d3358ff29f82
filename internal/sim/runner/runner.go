// Package runner drives a tumor.Simulation: paced or headless ticking, tick logging,
// and serving observers between ticks. All engine access happens on the loop goroutine.
package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kmarszal/mesa-tumor-model/internal/logging"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

// ErrStopped is returned by requests issued after the run loop exited.
var ErrStopped = errors.New("runner stopped")

type Config struct {
	Params tumor.Params

	// RunID defaults to a random UUID.
	RunID      string
	TickRateHz int
	// LogEveryTicks writes every n-th tick to the tick logger; 0 means every tick.
	LogEveryTicks        int
	RecordConcentrations bool
	// MaxTicks ends Run after that many ticks; 0 runs until stopped.
	MaxTicks int

	// SnapshotDir receives a checkpoint every SnapshotEveryTicks completed ticks.
	SnapshotDir        string
	SnapshotEveryTicks int
	// OnSnapshot is called with the path of every snapshot written.
	OnSnapshot func(path string)
	// Resume continues from a checkpoint instead of the initial lattice; Params must match it.
	Resume *tumor.Checkpoint

	TickLogger TickLogger
	Logger     *slog.Logger
}

type Runner struct {
	cfg   Config
	sim   *tumor.Simulation
	runID string
	log   *slog.Logger
	info  RunInfo

	tickLogger TickLogger

	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	cellReq       chan cellReq

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once

	observers map[string]*observerClient

	tick    atomic.Int64
	metrics atomic.Value
}

func New(cfg Config) (*Runner, error) {
	var (
		sim *tumor.Simulation
		err error
	)
	if cfg.Resume != nil {
		if cfg.Resume.Params != cfg.Params {
			return nil, fmt.Errorf("%w: resume checkpoint params differ from run params", tumor.ErrInvalidParameter)
		}
		sim, err = tumor.Restore(*cfg.Resume)
	} else {
		sim, err = tumor.New(cfg.Params)
	}
	if err != nil {
		return nil, err
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 5
	}
	if cfg.LogEveryTicks <= 0 {
		cfg.LogEveryTicks = 1
	}
	runID := strings.TrimSpace(cfg.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	r := &Runner{
		cfg:   cfg,
		sim:   sim,
		runID: runID,
		log:   logging.OrNop(cfg.Logger).With("run_id", runID),
		info: RunInfo{
			RunID:     runID,
			Seed:      cfg.Params.Seed,
			Params:    cfg.Params,
			StartedAt: time.Now().UTC(),
		},
		tickLogger:    cfg.TickLogger,
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 64),
		observerLeave: make(chan string, 16),
		cellReq:       make(chan cellReq, 64),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		observers:     map[string]*observerClient{},
	}
	r.tick.Store(int64(sim.State().Step))
	r.publishMetrics(tumor.TickMetrics{RemainingDoses: sim.State().RemainingDoses}, 0)
	return r, nil
}

func (r *Runner) RunID() string        { return r.runID }
func (r *Runner) Info() RunInfo        { return r.info }
func (r *Runner) Params() tumor.Params { return r.cfg.Params }
func (r *Runner) TickRateHz() int      { return r.cfg.TickRateHz }

// CurrentTick is the number of completed ticks.
func (r *Runner) CurrentTick() int { return int(r.tick.Load()) }

// Err returns the engine fault, if any. Only safe once the loop has exited.
func (r *Runner) Err() error { return r.sim.Err() }

// Stop asks the run loop to exit after the tick in progress.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed when Run or RunTicks returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) Metrics() Metrics {
	v := r.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	m, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

func (r *Runner) ObserverJoin() chan<- ObserverJoinRequest           { return r.observerJoin }
func (r *Runner) ObserverSubscribe() chan<- ObserverSubscribeRequest { return r.observerSub }
func (r *Runner) ObserverLeave() chan<- string                       { return r.observerLeave }

func (r *Runner) publishMetrics(m tumor.TickMetrics, stepDur time.Duration) {
	sw := r.sim.LastSweep()
	r.metrics.Store(Metrics{
		Tick:           r.sim.State().Step,
		MTD:            m.MTD,
		TumorCells:     m.TumorCells,
		RemainingDoses: r.sim.State().RemainingDoses,
		Transitions:    len(sw.Transitions),
		Skipped:        sw.Skipped,
		StepMS:         float64(stepDur.Microseconds()) / 1000,
		Observers:      len(r.observers),
		Running:        r.sim.Running(),
		Faulted:        r.sim.Err() != nil,
	})
}
