package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kmarszal/mesa-tumor-model/internal/replay"
)

func newReplayCmd() *cobra.Command {
	var (
		runDir   string
		dataDir  string
		runID    string
		fromTick int
		toTick   int
		noSnap   bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a logged run and verify every tick digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runDir == "" {
				if runID == "" {
					return fmt.Errorf("--run_dir or --run_id is required")
				}
				runDir = filepath.Join(dataDir, "runs", runID)
			}
			if toTick != 0 && toTick < fromTick {
				return fmt.Errorf("--to_tick must be >= --from_tick")
			}
			logger := cmdLogger(cmd)

			ctx, cancel := signalContext(context.Background())
			defer cancel()

			res, err := replay.Verify(ctx, runDir, replay.Options{FromTick: fromTick, ToTick: toTick, NoSnapshots: noSnap})
			if err != nil {
				logger.Error("replay failed", "run_dir", runDir, "checked", res.Checked, "err", err)
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintf(out, "replay %s OK: checked=%d last_tick=%d", res.RunID, res.Checked, res.LastTick)
			if res.FromSnapshot >= 0 {
				fmt.Fprintf(out, " from_snapshot=%d", res.FromSnapshot)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runDir, "run_dir", "", "run directory containing run.json and ticks/")
	cmd.Flags().StringVar(&dataDir, "data", "./data", "runtime data directory (with --run_id)")
	cmd.Flags().StringVar(&runID, "run_id", "", "run id under <data>/runs")
	cmd.Flags().IntVar(&fromTick, "from_tick", 0, "first tick to verify")
	cmd.Flags().IntVar(&toTick, "to_tick", 0, "last tick to verify (0 = end of log)")
	cmd.Flags().BoolVar(&noSnap, "no_snapshots", false, "replay from tick 0 even when a snapshot precedes --from_tick")
	return cmd
}
