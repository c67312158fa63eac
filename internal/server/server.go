package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"crossbook/internal/book"
	"crossbook/internal/quote"
	"crossbook/internal/store"
)

// Server exposes the subscriber WebSocket and the on-demand quote endpoint.
type Server struct {
	hub   *Hub
	store *store.Store
	log   *slog.Logger
}

func New(hub *Hub, s *store.Store, log *slog.Logger) *Server {
	return &Server{hub: hub, store: s, log: log.With("component", "server")}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.HandleFunc("/quote", s.handleQuote)
	return mux
}

// handleQuote simulates filling a dollar notional against the latest
// aggregated snapshot: GET /quote?notional=250&side=buy&outcome=yes.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	notional, err := strconv.ParseFloat(r.URL.Query().Get("notional"), 64)
	if err != nil || notional < 0 {
		http.Error(w, "notional must be a non-negative number", http.StatusBadRequest)
		return
	}

	side := quote.Side(r.URL.Query().Get("side"))
	if side != quote.SideBuy && side != quote.SideSell {
		http.Error(w, "side must be buy or sell", http.StatusBadRequest)
		return
	}

	agg := s.store.Aggregated()
	switch outcome := r.URL.Query().Get("outcome"); outcome {
	case "", "yes":
	case "no":
		agg = book.InvertToNo(agg)
	default:
		http.Error(w, "outcome must be yes or no", http.StatusBadRequest)
		return
	}

	res := quote.Quote(agg, notional, side)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.log.Warn("couldn't write quote response", "error", err)
	}
}
