package runner

import (
	"context"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

type cellReq struct {
	pos  lattice.Pos
	resp chan cellResp
}

type cellResp struct {
	tick int
	occ  tumor.Occupant
	err  error
}

// QueryCell asks the run loop for the occupant at p. It blocks until the loop answers, ctx ends,
// or the loop exits.
func (r *Runner) QueryCell(ctx context.Context, p lattice.Pos) (tumor.Occupant, int, error) {
	req := cellReq{pos: p, resp: make(chan cellResp, 1)}
	select {
	case r.cellReq <- req:
	case <-r.done:
		return tumor.Occupant{}, 0, ErrStopped
	case <-ctx.Done():
		return tumor.Occupant{}, 0, ctx.Err()
	}
	select {
	case resp := <-req.resp:
		return resp.occ, resp.tick, resp.err
	case <-r.done:
		return tumor.Occupant{}, 0, ErrStopped
	case <-ctx.Done():
		return tumor.Occupant{}, 0, ctx.Err()
	}
}

func (r *Runner) handleCellReq(req cellReq) {
	occ, err := r.sim.Occupant(req.pos)
	req.resp <- cellResp{tick: r.sim.State().Step, occ: occ, err: err}
}
