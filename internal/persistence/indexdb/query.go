package indexdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
)

// TickPoint is one row of a run's MTD series.
type TickPoint struct {
	Tick       int     `json:"tick"`
	MTD        float64 `json:"mtd"`
	TumorCells int     `json:"tumor_cells"`
	Dose       bool    `json:"dose"`
	Digest     string  `json:"digest"`
}

// TickSeries reads the indexed ticks of runID in tick order. Only committed rows are visible.
func (s *SQLiteIndex) TickSeries(ctx context.Context, runID string) ([]TickPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick, mtd, tumor_cells, dose, digest FROM ticks WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickPoint
	for rows.Next() {
		var p TickPoint
		var dose int
		if err := rows.Scan(&p.Tick, &p.MTD, &p.TumorCells, &dose, &p.Digest); err != nil {
			return nil, err
		}
		p.Dose = dose != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// DoseTicks lists the ticks at which runID received a dose.
func (s *SQLiteIndex) DoseTicks(ctx context.Context, runID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tick FROM doses WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var t int
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Runs lists indexed runs, newest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]runner.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, seed, params_json, started_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []runner.RunInfo
	for rows.Next() {
		var (
			info    runner.RunInfo
			pj      string
			started string
		)
		if err := rows.Scan(&info.RunID, &info.Seed, &pj, &started); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pj), &info.Params); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			info.StartedAt = t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
