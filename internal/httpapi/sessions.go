package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/skillswap/swap-app/internal/session"
)

type startSessionRequest struct {
	MatchID string `json:"matchId"`
}

type endSessionRequest struct {
	SessionID string `json:"sessionId"`
	Feedback  string `json:"feedback"`
}

// handleStartSession begins a swap session for a match. If another session
// is already active for the match, the existing session is returned with a
// 400 so the client can resume it instead of retrying.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MatchID == "" {
		writeError(w, http.StatusBadRequest, "matchId is required")
		return
	}

	sess, err := s.sessions.Start(r.Context(), req.MatchID, userID)
	if err != nil {
		var active *session.ActiveError
		if errors.As(err, &active) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"message": "Session already active for this match",
				"session": active.Session,
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// handleEndSession completes a session and records the requester's feedback.
// Ending an already-ended session is a conflict, not an idempotent success,
// so clients notice when both participants raced to end it.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)

	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	sess, err := s.sessions.End(r.Context(), req.SessionID, userID, req.Feedback)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Session ended successfully",
		"session": sess,
	})
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	sess, err := s.sessions.GetActive(r.Context(), matchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}
