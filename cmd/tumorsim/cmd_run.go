package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type runResult struct {
	RunID          string  `json:"run_id"`
	RunDir         string  `json:"run_dir"`
	Ticks          int     `json:"ticks"`
	MTD            float64 `json:"mtd"`
	TumorCells     int     `json:"tumor_cells"`
	RemainingDoses int     `json:"remaining_doses"`
	Faulted        bool    `json:"faulted"`
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation headless and log every tick",
		Long: `Run steps the simulation as fast as possible for --ticks ticks, writing the
compressed tick log under <data>/runs/<run_id>/ and indexing ticks in <data>/index.sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.ticks <= 0 {
				return fmt.Errorf("--ticks must be > 0")
			}
			logger := cmdLogger(cmd)
			s, err := openSession(cmd, &f, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(context.Background())
			defer cancel()

			runErr := s.runner.RunTicks(ctx, f.ticks)
			if runErr == nil && s.tuning.SnapshotEveryTicks > 0 {
				if err := s.runner.WriteSnapshot(); err != nil {
					logger.Warn("final snapshot failed", "err", err)
				}
			}
			m := s.runner.Metrics()
			res := runResult{
				RunID:          s.runner.RunID(),
				RunDir:         s.runDir,
				Ticks:          m.Tick,
				MTD:            m.MTD,
				TumorCells:     m.TumorCells,
				RemainingDoses: m.RemainingDoses,
				Faulted:        m.Faulted,
			}
			if err := printRunResult(cmd, res); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("run %s stopped at tick %d: %w", res.RunID, res.Ticks, runErr)
			}
			return nil
		},
	}
	f.register(cmd, 300)
	return cmd
}

func printRunResult(cmd *cobra.Command, res runResult) error {
	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return json.NewEncoder(out).Encode(res)
	}
	fmt.Fprintf(out, "run %s: ticks=%d mtd=%.4f tumor_cells=%d remaining_doses=%d\n",
		res.RunID, res.Ticks, res.MTD, res.TumorCells, res.RemainingDoses)
	fmt.Fprintf(out, "log: %s\n", res.RunDir)
	return nil
}
