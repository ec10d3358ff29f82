package runner

import (
	"time"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickLogEntry is one logged tick. Metrics are those collected at the start of the tick;
// Digest is the state after the tick's sweep.
type TickLogEntry struct {
	RunID          string                `json:"run_id"`
	Tick           int                   `json:"tick"`
	MTD            float64               `json:"mtd"`
	TumorCells     int                   `json:"tumor_cells"`
	Counts         tumor.PhenotypeCounts `json:"counts"`
	Dose           bool                  `json:"dose"`
	RemainingDoses int                   `json:"remaining_doses"`
	Transitions    int                   `json:"transitions"`
	Digest         string                `json:"digest"`
	Concentrations []float64             `json:"concentrations,omitempty"`
}

// MultiTickLogger fans an entry out to every non-nil logger. Errors are ignored; the
// first logger is usually the authoritative tick log and the rest are best-effort indexes.
type MultiTickLogger []TickLogger

func (m MultiTickLogger) WriteTick(entry TickLogEntry) error {
	var first error
	for i, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteTick(entry); err != nil && i == 0 {
			first = err
		}
	}
	return first
}

// RunInfo describes a run for indexes and replay.
type RunInfo struct {
	RunID     string       `json:"run_id"`
	Seed      int64        `json:"seed"`
	Params    tumor.Params `json:"params"`
	StartedAt time.Time    `json:"started_at"`
}

// Metrics is a thread-safe read-only view of the driver state.
// It is updated from the run loop goroutine and read from HTTP handlers/tests.
type Metrics struct {
	Tick           int     `json:"tick"`
	MTD            float64 `json:"mtd"`
	TumorCells     int     `json:"tumor_cells"`
	RemainingDoses int     `json:"remaining_doses"`
	Transitions    int     `json:"transitions"`
	Skipped        int     `json:"skipped"`
	StepMS         float64 `json:"step_ms"`
	Observers      int     `json:"observers"`
	Running        bool    `json:"running"`
	Faulted        bool    `json:"faulted"`
}

// ObserverJoinRequest registers a frame sink with the run loop.
type ObserverJoinRequest struct {
	SessionID string
	FrameOut  chan []byte

	EveryTicks     int
	Concentrations bool
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID string

	EveryTicks     int
	Concentrations bool
}
