package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/skillswap/swap-app/internal/match"
	"github.com/skillswap/swap-app/internal/ratelimit"
)

// matchesResponse is the GET /matches payload: the user's match partitions
// plus ranked suggestions with already-matched users filtered out.
type matchesResponse struct {
	*match.List
	Suggestions []match.Suggestion `json:"suggestions"`
}

// handleListMatches composes the discovery view. Suggestions and the match
// list come from separate reads, so a match created between them can appear
// in both; clients treat the match list as authoritative.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	ctx := r.Context()

	list, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ranked, err := s.suggestions.Rank(ctx, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	matched := list.UserIDs()
	suggestions := make([]match.Suggestion, 0, len(ranked))
	for _, sg := range ranked {
		if matched[sg.User.ID] {
			continue
		}
		suggestions = append(suggestions, sg)
	}

	writeJSON(w, http.StatusOK, matchesResponse{
		List:        list,
		Suggestions: suggestions,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	matchID := mux.Vars(r)["matchId"]

	m, err := s.matches.Get(r.Context(), matchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !m.IsParticipant(userID) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRequestMatch(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	targetID := mux.Vars(r)["targetUserId"]

	if s.limiter != nil {
		allowed, _ := s.limiter.Allow(r.Context(), userID, ratelimit.RuleMatchRequest)
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "Too many match requests")
			return
		}
	}

	matchID, err := s.matches.Request(r.Context(), userID, targetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Match request sent",
		"matchId": matchID,
	})
}

func (s *Server) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	matchID := mux.Vars(r)["matchId"]

	m, err := s.matches.Accept(r.Context(), userID, matchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Match accepted",
		"match":   m,
	})
}

// handleMatchPresence reports which participants of the match are currently
// online, for the call screen's "partner is available" indicator.
func (s *Server) handleMatchPresence(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	matchID := mux.Vars(r)["matchId"]

	m, err := s.matches.Get(r.Context(), matchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !m.IsParticipant(userID) {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	online := []string{}
	if s.presence != nil {
		online, err = s.presence.OnlineAmong(r.Context(), []string{m.UserA, m.UserB})
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matchId": matchID,
		"online":  online,
	})
}
