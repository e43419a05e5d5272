package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	databaseConnected    = "Connected"
	databaseDisconnected = "Disconnected"
)

type healthBody struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

func (s *Server) ping(ctx context.Context) error {
	if s.pinger == nil {
		return errors.New("no persistence backend")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pinger.Ping(ctx)
}

// handleHealth always answers 200; the database field carries the backend state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "OK", Timestamp: s.now().UTC(), Database: databaseConnected}
	if err := s.ping(r.Context()); err != nil {
		body.Database = databaseDisconnected
	}
	OK(body).Write(w)
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) session(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(st.Status())
}

func (s *Server) getProfile(r *http.Request, st *ledger.Store) *ResponseBuilder {
	p, err := st.Profile(r.Context())
	if err != nil {
		return FromError(err)
	}
	return OK(p)
}

// upsertProfile records a sign-in. An empty body is allowed; token claims
// fill in what the body leaves out.
func (s *Server) upsertProfile(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.Profile
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &in); err != nil {
			return FromError(err)
		}
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		if strings.TrimSpace(in.Email) == "" {
			in.Email = claims.Email
		}
		if strings.TrimSpace(in.DisplayName) == "" {
			in.DisplayName = claims.Name
		}
	}
	p, err := st.UpsertProfile(r.Context(), in)
	if err != nil {
		return FromError(err)
	}
	return OK(p)
}
