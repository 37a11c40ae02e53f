// Package httpapi exposes the REST surface for match discovery, match
// lifecycle, presence lookups, and session tracking. Handlers depend on
// narrow service interfaces so tests can run them against fakes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/skillswap/swap-app/internal/auth"
	"github.com/skillswap/swap-app/internal/match"
	"github.com/skillswap/swap-app/internal/ratelimit"
	"github.com/skillswap/swap-app/internal/session"
)

// MatchService is the slice of the match store the API uses.
type MatchService interface {
	Request(ctx context.Context, requesterID, targetID string) (string, error)
	Accept(ctx context.Context, accepterID, matchID string) (*match.Match, error)
	Get(ctx context.Context, matchID string) (*match.Match, error)
	ListForUser(ctx context.Context, userID string) (*match.List, error)
}

// SuggestionService produces ranked partner suggestions.
type SuggestionService interface {
	Rank(ctx context.Context, userID string) ([]match.Suggestion, error)
}

// SessionService is the slice of the session store the API uses.
type SessionService interface {
	Start(ctx context.Context, matchID, requesterID string) (*session.Session, error)
	End(ctx context.Context, sessionID, requesterID, feedback string) (*session.Session, error)
	GetActive(ctx context.Context, matchID string) (*session.Session, error)
}

// PresenceService reports which of a set of users are online.
type PresenceService interface {
	OnlineAmong(ctx context.Context, userIDs []string) ([]string, error)
}

// Server holds the REST handler dependencies.
type Server struct {
	matches     MatchService
	suggestions SuggestionService
	sessions    SessionService
	presence    PresenceService
	verifier    auth.Verifier
	limiter     *ratelimit.Limiter
}

// NewServer creates the REST server. presence and limiter may be nil; the
// presence endpoint then reports nobody online and match requests are not
// rate limited.
func NewServer(matches MatchService, suggestions SuggestionService, sessions SessionService, presence PresenceService, verifier auth.Verifier, limiter *ratelimit.Limiter) *Server {
	return &Server{
		matches:     matches,
		suggestions: suggestions,
		sessions:    sessions,
		presence:    presence,
		verifier:    verifier,
		limiter:     limiter,
	}
}

// Router builds the gorilla/mux router with all API routes mounted behind
// the bearer-token middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.authMiddleware)

	r.HandleFunc("/matches", s.handleListMatches).Methods(http.MethodGet)
	r.HandleFunc("/matches/request/{targetUserId}", s.handleRequestMatch).Methods(http.MethodPost)
	r.HandleFunc("/matches/accept/{matchId}", s.handleAcceptMatch).Methods(http.MethodPost)
	r.HandleFunc("/matches/{matchId}", s.handleGetMatch).Methods(http.MethodGet)
	r.HandleFunc("/matches/{matchId}/presence", s.handleMatchPresence).Methods(http.MethodGet)

	r.HandleFunc("/sessions/start", s.handleStartSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/end", s.handleEndSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/active/{matchId}", s.handleActiveSession).Methods(http.MethodGet)

	return r
}

type contextKey string

const userIDKey contextKey = "userID"

// authMiddleware verifies the Authorization bearer token and stores the
// resolved user ID on the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}

		userID, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				log.Printf("httpapi: auth backend error: %v", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid or missing token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// requestUserID returns the authenticated user ID placed on the context by
// the middleware.
func requestUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps domain errors to HTTP status codes. Unknown errors
// are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrSelfMatch):
		writeError(w, http.StatusBadRequest, "Cannot match with yourself")
	case errors.Is(err, match.ErrSelfAccept):
		writeError(w, http.StatusBadRequest, "Cannot accept your own request")
	case errors.Is(err, match.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, match.ErrNotFound):
		writeError(w, http.StatusNotFound, "Match not found")
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, match.ErrAccessDenied), errors.Is(err, session.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, match.ErrAlreadyAccepted):
		writeError(w, http.StatusConflict, "Match already accepted")
	case errors.Is(err, session.ErrSessionEnded):
		writeError(w, http.StatusConflict, "Session already ended")
	default:
		log.Printf("httpapi: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
