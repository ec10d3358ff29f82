package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmarszal/mesa-tumor-model/internal/persistence/indexdb"
	"github.com/kmarszal/mesa-tumor-model/internal/persistence/objectstore"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
	"github.com/kmarszal/mesa-tumor-model/internal/transport/observer"
)

func newServeCmd() *cobra.Command {
	var f runFlags
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a paced simulation with HTTP and websocket observers",
		Long: `Serve paces the simulation at tick_rate_hz and exposes:
  GET  /v1/bootstrap     run parameters
  GET  /v1/cell?x=&y=   occupant at a position
  GET  /v1/ws            frame stream (SUBSCRIBE handshake)
  POST /admin/v1/stop    stop the run (loopback only)
  GET  /healthz, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cmdLogger(cmd)
			s, err := openSession(cmd, &f, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signalContext(context.Background())
			defer cancel()

			mux := http.NewServeMux()
			observer.NewServer(s.runner, logger).Register(mux)
			mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
				rw.WriteHeader(http.StatusOK)
				_, _ = rw.Write([]byte("ok"))
			})
			mux.HandleFunc("/metrics", metricsHandler(s.runner, s.index, s.mirror))

			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			srvErr := make(chan error, 1)
			go func() {
				logger.Info("http listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					srvErr <- err
				}
				close(srvErr)
			}()

			runErr := make(chan error, 1)
			go func() { runErr <- s.runner.Run(ctx) }()

			var result error
			select {
			case err := <-runErr:
				if err != nil && !errors.Is(err, context.Canceled) {
					result = err
				}
				// Keep serving the final state until interrupted.
				if ctx.Err() == nil {
					logger.Info("run ended; serving final state", "tick", s.runner.CurrentTick())
					select {
					case <-ctx.Done():
					case err := <-srvErr:
						if err != nil && result == nil {
							result = err
						}
					}
				}
			case err := <-srvErr:
				if err != nil {
					result = fmt.Errorf("http: %w", err)
				}
				cancel()
				<-runErr
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
			return result
		},
	}
	f.register(cmd, 0)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}

func metricsHandler(r *runner.Runner, idx *indexdb.SQLiteIndex, mirror *objectstore.Mirror) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, r.Metrics(), idx, mirror)
	}
}

func writeMetrics(w io.Writer, m runner.Metrics, idx *indexdb.SQLiteIndex, mirror *objectstore.Mirror) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP tumorsim_%s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE tumorsim_%s gauge\n", name)
		fmt.Fprintf(w, "tumorsim_%s %v\n", name, v)
	}
	gauge("tick", "Completed ticks.", m.Tick)
	gauge("mtd", "Measured tumor diameter at the start of the last tick.", m.MTD)
	gauge("tumor_cells", "Living tumor cells at the start of the last tick.", m.TumorCells)
	gauge("remaining_doses", "Doses left in the treatment schedule.", m.RemainingDoses)
	gauge("transitions", "Phenotype transitions in the last sweep.", m.Transitions)
	gauge("skipped", "Sweep visits skipped because the occupant was displaced.", m.Skipped)
	gauge("step_ms", "Last tick step duration in milliseconds.", m.StepMS)
	gauge("observers", "Connected websocket observers.", m.Observers)
	gauge("running", "1 while the simulation accepts ticks.", boolGauge(m.Running))
	gauge("faulted", "1 after a tick failed.", boolGauge(m.Faulted))

	if idx != nil {
		st := idx.Stats()
		gauge("index_queue_depth", "Index writer backlog.", st.QueueDepth)
		fmt.Fprintf(w, "# HELP tumorsim_index_dropped_total Index writes dropped on backpressure.\n")
		fmt.Fprintf(w, "# TYPE tumorsim_index_dropped_total counter\n")
		fmt.Fprintf(w, "tumorsim_index_dropped_total{kind=\"tick\"} %d\n", st.DropTickTotal)
		fmt.Fprintf(w, "tumorsim_index_dropped_total{kind=\"run\"} %d\n", st.DropRunTotal)
	}
	if mirror != nil {
		st := mirror.Stats()
		gauge("mirror_queue_depth", "Pending object store uploads.", st.QueueDepth)
		fmt.Fprintf(w, "# HELP tumorsim_mirror_uploads_total Object store uploads by result.\n")
		fmt.Fprintf(w, "# TYPE tumorsim_mirror_uploads_total counter\n")
		fmt.Fprintf(w, "tumorsim_mirror_uploads_total{result=\"ok\"} %d\n", st.UploadSuccessTotal)
		fmt.Fprintf(w, "tumorsim_mirror_uploads_total{result=\"fail\"} %d\n", st.UploadFailTotal)
		fmt.Fprintf(w, "tumorsim_mirror_uploads_total{result=\"dropped\"} %d\n", st.DroppedTotal)
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
