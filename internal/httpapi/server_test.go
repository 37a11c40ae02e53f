package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skillswap/swap-app/internal/auth"
	"github.com/skillswap/swap-app/internal/directory"
	"github.com/skillswap/swap-app/internal/match"
	"github.com/skillswap/swap-app/internal/session"
)

// fakeVerifier resolves "token-<user>" to "<user>".
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, "token-") {
		return "", auth.ErrInvalidToken
	}
	return strings.TrimPrefix(token, "token-"), nil
}

type fakeMatchService struct {
	requestID  string
	requestErr error
	acceptErr  error
	getMatch   *match.Match
	getErr     error
	list       *match.List
}

func (f *fakeMatchService) Request(_ context.Context, _, _ string) (string, error) {
	return f.requestID, f.requestErr
}

func (f *fakeMatchService) Accept(_ context.Context, _, _ string) (*match.Match, error) {
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	return f.getMatch, nil
}

func (f *fakeMatchService) Get(_ context.Context, _ string) (*match.Match, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getMatch, nil
}

func (f *fakeMatchService) ListForUser(_ context.Context, _ string) (*match.List, error) {
	if f.list != nil {
		return f.list, nil
	}
	return &match.List{Accepted: []match.Entry{}, Incoming: []match.Entry{}, Outgoing: []match.Entry{}}, nil
}

type fakeSuggestions struct {
	ranked []match.Suggestion
}

func (f *fakeSuggestions) Rank(_ context.Context, _ string) ([]match.Suggestion, error) {
	return f.ranked, nil
}

type fakeSessions struct {
	startSess *session.Session
	startErr  error
	endSess   *session.Session
	endErr    error
	active    *session.Session
	activeErr error
}

func (f *fakeSessions) Start(_ context.Context, _, _ string) (*session.Session, error) {
	return f.startSess, f.startErr
}

func (f *fakeSessions) End(_ context.Context, _, _, _ string) (*session.Session, error) {
	return f.endSess, f.endErr
}

func (f *fakeSessions) GetActive(_ context.Context, _ string) (*session.Session, error) {
	return f.active, f.activeErr
}

type fakePresence struct {
	online []string
}

func (f *fakePresence) OnlineAmong(_ context.Context, _ []string) ([]string, error) {
	return f.online, nil
}

type testDeps struct {
	matches     *fakeMatchService
	suggestions *fakeSuggestions
	sessions    *fakeSessions
	presence    *fakePresence
}

func newTestServer(deps testDeps) *Server {
	if deps.matches == nil {
		deps.matches = &fakeMatchService{}
	}
	if deps.suggestions == nil {
		deps.suggestions = &fakeSuggestions{}
	}
	if deps.sessions == nil {
		deps.sessions = &fakeSessions{}
	}
	if deps.presence == nil {
		deps.presence = &fakePresence{}
	}
	return NewServer(deps.matches, deps.suggestions, deps.sessions, deps.presence, fakeVerifier{}, nil)
}

func doRequest(t *testing.T, s *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("Authorization", "Bearer token-"+user)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestAuth_MissingToken(t *testing.T) {
	rec := doRequest(t, newTestServer(testDeps{}), http.MethodGet, "/matches", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestListMatches_FiltersMatchedUsers(t *testing.T) {
	s := newTestServer(testDeps{
		matches: &fakeMatchService{
			list: &match.List{
				Accepted: []match.Entry{{MatchID: "m1", User: directory.User{ID: "bob"}}},
				Incoming: []match.Entry{},
				Outgoing: []match.Entry{},
			},
		},
		suggestions: &fakeSuggestions{
			ranked: []match.Suggestion{
				{User: directory.User{ID: "bob"}, Compatibility: 90},
				{User: directory.User{ID: "carol"}, Compatibility: 40},
			},
		},
	})

	rec := doRequest(t, s, http.MethodGet, "/matches", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp matchesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0].User.ID != "carol" {
		t.Errorf("expected matched user filtered out, got %+v", resp.Suggestions)
	}
	if len(resp.Accepted) != 1 {
		t.Errorf("expected accepted match in response, got %+v", resp.List)
	}
}

func TestRequestMatch_Created(t *testing.T) {
	s := newTestServer(testDeps{matches: &fakeMatchService{requestID: "m42"}})

	rec := doRequest(t, s, http.MethodPost, "/matches/request/bob", "alice", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["matchId"] != "m42" {
		t.Errorf("expected matchId m42, got %v", resp)
	}
}

func TestRequestMatch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"self match", match.ErrSelfMatch, http.StatusBadRequest},
		{"unknown target", match.ErrTargetNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(testDeps{matches: &fakeMatchService{requestErr: tc.err}})
			rec := doRequest(t, s, http.MethodPost, "/matches/request/bob", "alice", "")
			if rec.Code != tc.code {
				t.Errorf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestAcceptMatch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"own request", match.ErrSelfAccept, http.StatusBadRequest},
		{"outsider", match.ErrAccessDenied, http.StatusForbidden},
		{"already accepted", match.ErrAlreadyAccepted, http.StatusConflict},
		{"missing", match.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(testDeps{matches: &fakeMatchService{acceptErr: tc.err}})
			rec := doRequest(t, s, http.MethodPost, "/matches/accept/m1", "bob", "")
			if rec.Code != tc.code {
				t.Errorf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestAcceptMatch_ReturnsMatch(t *testing.T) {
	s := newTestServer(testDeps{matches: &fakeMatchService{
		getMatch: &match.Match{ID: "m1", UserA: "alice", UserB: "bob", Status: match.StatusAccepted},
	}})

	rec := doRequest(t, s, http.MethodPost, "/matches/accept/m1", "bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Match match.Match `json:"match"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Match.Status != match.StatusAccepted {
		t.Errorf("expected accepted match in body, got %+v", resp.Match)
	}
}

func TestGetMatch_NonParticipant(t *testing.T) {
	s := newTestServer(testDeps{matches: &fakeMatchService{
		getMatch: &match.Match{ID: "m1", UserA: "alice", UserB: "bob"},
	}})

	rec := doRequest(t, s, http.MethodGet, "/matches/m1", "mallory", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestMatchPresence(t *testing.T) {
	s := newTestServer(testDeps{
		matches: &fakeMatchService{
			getMatch: &match.Match{ID: "m1", UserA: "alice", UserB: "bob"},
		},
		presence: &fakePresence{online: []string{"bob"}},
	})

	rec := doRequest(t, s, http.MethodGet, "/matches/m1/presence", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Online []string `json:"online"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Online) != 1 || resp.Online[0] != "bob" {
		t.Errorf("expected bob online, got %v", resp.Online)
	}
}

func TestStartSession_Created(t *testing.T) {
	s := newTestServer(testDeps{sessions: &fakeSessions{
		startSess: &session.Session{ID: "s1", MatchID: "m1", Status: session.StatusActive},
	}})

	rec := doRequest(t, s, http.MethodPost, "/sessions/start", "alice", `{"matchId":"m1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartSession_AlreadyActiveReturnsExisting(t *testing.T) {
	existing := &session.Session{ID: "s0", MatchID: "m1", Status: session.StatusActive}
	s := newTestServer(testDeps{sessions: &fakeSessions{
		startErr: &session.ActiveError{Session: existing},
	}})

	rec := doRequest(t, s, http.MethodPost, "/sessions/start", "alice", `{"matchId":"m1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Session session.Session `json:"session"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Session.ID != "s0" {
		t.Errorf("expected existing session in body, got %+v", resp.Session)
	}
}

func TestStartSession_MissingMatchID(t *testing.T) {
	rec := doRequest(t, newTestServer(testDeps{}), http.MethodPost, "/sessions/start", "alice", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEndSession_WrapsSessionWithMessage(t *testing.T) {
	ended := &session.Session{ID: "s1", MatchID: "m1", Status: session.StatusCompleted, DurationMinutes: 2}
	s := newTestServer(testDeps{sessions: &fakeSessions{endSess: ended}})

	rec := doRequest(t, s, http.MethodPost, "/sessions/end", "alice", `{"sessionId":"s1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string          `json:"message"`
		Session session.Session `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.Message == "" {
		t.Error("expected a message field in the response")
	}
	if resp.Session.ID != "s1" || resp.Session.DurationMinutes != 2 {
		t.Errorf("expected ended session in body, got %+v", resp.Session)
	}
}

func TestEndSession_Conflict(t *testing.T) {
	s := newTestServer(testDeps{sessions: &fakeSessions{endErr: session.ErrSessionEnded}})

	rec := doRequest(t, s, http.MethodPost, "/sessions/end", "alice", `{"sessionId":"s1"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestActiveSession_NotFound(t *testing.T) {
	s := newTestServer(testDeps{sessions: &fakeSessions{activeErr: session.ErrNotFound}})

	rec := doRequest(t, s, http.MethodGet, "/sessions/active/m1", "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
