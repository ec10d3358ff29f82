package runner

import (
	"encoding/json"

	"github.com/kmarszal/mesa-tumor-model/internal/protocol"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/encoding"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

type observerClient struct {
	id       string
	frameOut chan []byte

	everyTicks     int
	concentrations bool
}

func (r *Runner) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.FrameOut == nil {
		return
	}
	if old := r.observers[req.SessionID]; old != nil {
		close(old.frameOut)
	}
	r.observers[req.SessionID] = &observerClient{
		id:             req.SessionID,
		frameOut:       req.FrameOut,
		everyTicks:     clampEvery(req.EveryTicks),
		concentrations: req.Concentrations,
	}
	r.log.Debug("observer joined", "session", req.SessionID)
}

func (r *Runner) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := r.observers[req.SessionID]
	if c == nil {
		return
	}
	c.everyTicks = clampEvery(req.EveryTicks)
	c.concentrations = req.Concentrations
}

func (r *Runner) handleObserverLeave(id string) {
	c := r.observers[id]
	if c == nil {
		return
	}
	close(c.frameOut)
	delete(r.observers, id)
	r.log.Debug("observer left", "session", id)
}

func (r *Runner) broadcastFrame(entry TickLogEntry) {
	if len(r.observers) == 0 {
		return
	}
	var plain, withC []byte
	for _, c := range r.observers {
		if entry.Tick%c.everyTicks != 0 {
			continue
		}
		if c.concentrations {
			if withC == nil {
				withC = r.frame(entry, true)
			}
			sendLatest(c.frameOut, withC)
			continue
		}
		if plain == nil {
			plain = r.frame(entry, false)
		}
		sendLatest(c.frameOut, plain)
	}
}

// frame encodes entry's metrics with the lattice as it stands after the sweep.
func (r *Runner) frame(entry TickLogEntry, withConcentrations bool) []byte {
	msg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		RunID:           r.runID,
		Tick:            entry.Tick,
		MTD:             entry.MTD,
		TumorCells:      entry.TumorCells,
		Counts:          entry.Counts,
		Dose:            entry.Dose,
		RemainingDoses:  entry.RemainingDoses,
		Width:           r.cfg.Params.Width,
		Height:          r.cfg.Params.Height,
		Phenotypes:      encoding.EncodePhenotypes(r.sim.Phenotypes(make([]tumor.Phenotype, 0, r.sim.Grid().Cells()))),
	}
	if withConcentrations {
		msg.Concentrations = encoding.EncodeConcentrations(r.sim.Concentrations(make([]float64, 0, r.sim.Grid().Cells())))
	}
	b, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("frame marshal", "err", err)
		return nil
	}
	return b
}

func clampEvery(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10000 {
		return 10000
	}
	return n
}

func sendLatest(ch chan []byte, b []byte) {
	if b == nil {
		return
	}
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
