// Package api exposes the read-only dashboard surface: engine status,
// ladder, fill history and Prometheus metrics. The simulator takes no
// commands over HTTP; every endpoint is a GET.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/engine"
)

// StatusSource provides a consistent point-in-time engine snapshot.
type StatusSource interface {
	Status() engine.Status
}

// FillHistory reads journaled fills beyond the in-memory ring.
type FillHistory interface {
	Recent(ctx context.Context, limit int) ([]domain.FillEvent, error)
}

// Server serves the dashboard API.
type Server struct {
	source  StatusSource
	history FillHistory
	router  *mux.Router
	httpSrv *http.Server
}

// NewServer wires the routes. history may be nil when the journal is
// disabled; /api/v1/fills then falls back to the status ring.
func NewServer(addr string, source StatusSource, history FillHistory) *Server {
	s := &Server{
		source:  source,
		history: history,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           c.Handler(s.router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/ladder", s.handleLadder).Methods("GET")
	api.HandleFunc("/fills", s.handleFills).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Start blocks serving until Shutdown or a listener error. A bind failure
// surfaces immediately so the caller can abort startup.
func (s *Server) Start() error {
	slog.Info("api server starting", slog.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.source.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"seq":    st.Seq,
		"symbol": st.Symbol,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Status())
}

// ladderResponse is the compact ladder view: just the rungs and the
// anchor they hang off.
type ladderResponse struct {
	AnchorPrice *float64             `json:"anchor_price"`
	BuyLevels   []domain.LadderLevel `json:"buy_levels"`
	SellLevels  []domain.LadderLevel `json:"sell_levels"`
}

func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	st := s.source.Status()
	writeJSON(w, http.StatusOK, ladderResponse{
		AnchorPrice: st.AnchorPrice,
		BuyLevels:   st.BuyLevels,
		SellLevels:  st.SellLevels,
	})
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be an integer in [1,500]")
			return
		}
		limit = n
	}

	if s.history == nil {
		fills := s.source.Status().RecentFills
		if len(fills) > limit {
			fills = fills[:limit]
		}
		writeJSON(w, http.StatusOK, fills)
		return
	}

	fills, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("fill history query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "fill history unavailable")
		return
	}
	if fills == nil {
		fills = []domain.FillEvent{}
	}
	writeJSON(w, http.StatusOK, fills)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
