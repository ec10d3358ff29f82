package protocol

import "github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	RunID           string       `json:"run_id"`
	Tick            int          `json:"tick"`
	TickRateHz      int          `json:"tick_rate_hz"`
	Params          tumor.Params `json:"params"`
	// Phenotypes is the palette used by FrameMsg.Phenotypes, indexed by value.
	Phenotypes []string `json:"phenotypes"`
}

// Client -> Server. First message on the observer WS connection; re-sending updates the subscription.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EveryTicks throttles frames; 0 and 1 both mean every tick.
	EveryTicks     int  `json:"every_ticks,omitempty"`
	Concentrations bool `json:"concentrations,omitempty"`
}

// Server -> Client. One per delivered tick. Metrics are collected at the start of Tick;
// the grid is the lattice after Tick's sweep.
type FrameMsg struct {
	Type            string                `json:"type"`
	ProtocolVersion string                `json:"protocol_version"`
	RunID           string                `json:"run_id"`
	Tick            int                   `json:"tick"`
	MTD             float64               `json:"mtd"`
	TumorCells      int                   `json:"tumor_cells"`
	Counts          tumor.PhenotypeCounts `json:"counts"`
	Dose            bool                  `json:"dose"`
	RemainingDoses  int                   `json:"remaining_doses"`
	Width           int                   `json:"width"`
	Height          int                   `json:"height"`

	// Phenotypes is the row-major grid, RLE encoded (see internal/sim/encoding).
	Phenotypes string `json:"phenotypes"`
	// Concentrations is base64 little-endian float32, present when subscribed.
	Concentrations string `json:"concentrations,omitempty"`
}

// HTTP response for GET /v1/cell.
type CellMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            int     `json:"tick"`
	ID              int     `json:"id"`
	X               int     `json:"x"`
	Y               int     `json:"y"`
	Phenotype       string  `json:"phenotype"`
	C               float64 `json:"c"`
	Generation      uint32  `json:"generation"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}

// HTTP response for POST /admin/v1/stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
	Tick    int  `json:"tick"`
}
