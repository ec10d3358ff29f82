package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kmarszal/mesa-tumor-model/internal/logging"
	"github.com/kmarszal/mesa-tumor-model/internal/protocol"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/lattice"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

type Server struct {
	run *runner.Runner
	log *slog.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(r *runner.Runner, logger *slog.Logger) *Server {
	return &Server{
		run: r,
		log: logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Register mounts the observer API on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/v1/cell", s.CellHandler())
	mux.HandleFunc("/v1/ws", s.WSHandler())
	mux.HandleFunc("/admin/v1/stop", s.StopHandler())
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(rw, http.StatusOK, protocol.BootstrapResponse{
			ProtocolVersion: protocol.Version,
			RunID:           s.run.RunID(),
			Tick:            s.run.CurrentTick(),
			TickRateHz:      s.run.TickRateHz(),
			Params:          s.run.Params(),
			Phenotypes:      tumor.PhenotypeNames(),
		})
	}
}

func (s *Server) CellHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		x, errX := strconv.Atoi(q.Get("x"))
		y, errY := strconv.Atoi(q.Get("y"))
		if errX != nil || errY != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.NewError(protocol.ErrBadRequest, "x and y must be integers"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		occ, tick, err := s.run.QueryCell(ctx, lattice.Pos{X: x, Y: y})
		switch {
		case err == nil:
		case errors.Is(err, tumor.ErrInvalidPosition):
			writeJSON(rw, http.StatusBadRequest, protocol.NewError(protocol.ErrInvalidPosition, err.Error()))
			return
		case errors.Is(err, runner.ErrStopped) && s.run.Err() != nil:
			writeJSON(rw, http.StatusServiceUnavailable, protocol.NewError(protocol.ErrFaulted, s.run.Err().Error()))
			return
		case errors.Is(err, runner.ErrStopped), errors.Is(err, context.DeadlineExceeded):
			writeJSON(rw, http.StatusServiceUnavailable, protocol.NewError(protocol.ErrBusy, err.Error()))
			return
		default:
			writeJSON(rw, http.StatusInternalServerError, protocol.NewError(protocol.ErrInternal, err.Error()))
			return
		}
		writeJSON(rw, http.StatusOK, protocol.CellMsg{
			Type:            protocol.TypeCell,
			ProtocolVersion: protocol.Version,
			Tick:            tick,
			ID:              occ.ID,
			X:               occ.Pos.X,
			Y:               occ.Pos.Y,
			Phenotype:       occ.Phenotype.String(),
			C:               occ.C,
			Generation:      occ.Generation,
		})
	}
}

// StopHandler ends the run after the tick in progress. Loopback only.
func (s *Server) StopHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		s.run.Stop()
		stopped := false
		select {
		case <-s.run.Done():
			stopped = true
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
		s.log.Info("stop requested", "remote", r.RemoteAddr, "stopped", stopped)
		writeJSON(rw, http.StatusOK, protocol.StopResponse{Stopped: stopped, Tick: s.run.CurrentTick()})
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			s.reject(conn, websocket.ClosePolicyViolation, protocol.ErrBadRequest, "expected SUBSCRIBE "+protocol.Version)
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		frameOut := make(chan []byte, 8)

		joinReq := runner.ObserverJoinRequest{
			SessionID:      sid,
			FrameOut:       frameOut,
			EveryTicks:     sub.EveryTicks,
			Concentrations: sub.Concentrations,
		}
		select {
		case s.run.ObserverJoin() <- joinReq:
		default:
			s.reject(conn, websocket.CloseTryAgainLater, protocol.ErrBusy, "server busy")
			return
		}
		s.log.Debug("observer connected", "session", sid, "remote", r.RemoteAddr)
		defer func() {
			select {
			case s.run.ObserverLeave() <- sid:
			case <-s.run.Done():
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-frameOut:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run ended"), time.Now().Add(time.Second))
						writeErr <- nil
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			req := runner.ObserverSubscribeRequest{
				SessionID:      sid,
				EveryTicks:     sub.EveryTicks,
				Concentrations: sub.Concentrations,
			}
			select {
			case s.run.ObserverSubscribe() <- req:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) reject(conn *websocket.Conn, closeCode int, code, msg string) {
	if b, err := json.Marshal(protocol.NewError(code, msg)); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, msg), time.Now().Add(time.Second))
}

func parseSubscribe(msg []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
		return sub, false
	}
	if sub.EveryTicks < 0 {
		sub.EveryTicks = 0
	}
	return sub, true
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
