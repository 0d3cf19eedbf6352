// Package server serves the graph page and pushes provider updates to it over
// a websocket.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/thiagokokada/gitviz-go/internal/graph"
	"github.com/thiagokokada/gitviz-go/internal/provider"
)

const DefaultAddr = "127.0.0.1:7420"

//go:embed static/index.html
var indexHTML []byte

// State is the provider surface the HTTP handlers read from.
type State interface {
	Snapshot() (g graph.Graph, complete bool, ok bool)
	Status() provider.Status
	UpdateLayout(updates []graph.LayoutUpdate) int
}

type Config struct {
	Addr  string
	State State
	// Workspace is shown in the page title.
	Workspace string
}

type Server struct {
	addr      string
	state     State
	workspace string
	hub       *Hub
	upgrader  websocket.Upgrader
}

func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:      cfg.Addr,
		state:     cfg.State,
		workspace: cfg.Workspace,
		hub:       NewHub(cfg.State.UpdateLayout),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Hub is the render sink to attach to the provider.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger,
		middleware.Recoverer,
	)
	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/graph", s.handleGraph)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/ws", s.handleWebsocket)
	return r
}

// Serve listens on the configured address until ctx is done, then shuts the
// server down and disconnects every page.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("serving graph", slog.String("url", "http://"+ln.Addr().String()))

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Debug("shutting down server")
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	g, _, ok := s.state.Snapshot()
	if !ok {
		http.Error(w, "graph not read yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, g)
}

type statusResponse struct {
	provider.Status
	Workspace string `json:"workspace,omitempty"`
	Clients   int    `json:"clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, statusResponse{
		Status:    s.state.Status(),
		Workspace: s.workspace,
		Clients:   s.hub.Clients(),
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade", slog.Any("error", err))
		return
	}
	c, ok := s.hub.register(conn)
	if !ok {
		_ = conn.Close()
		return
	}
	s.hub.serve(c)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
