package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func setupTestRouter(t *testing.T, opts Options) (*chi.Mux, *testEnv) {
	t.Helper()
	env := setupTestEngine(t, opts)
	r := chi.NewRouter()
	RegisterRoutes(r, env.engine)
	return r, env
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleSessionFlow(t *testing.T) {
	r, _ := setupTestRouter(t, Options{MaxSituations: 1, DominantCount: 7})

	w := do(t, r, http.MethodPost, "/api/sessions", `{"player_id":42,"language":"en"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sess Session
	json.NewDecoder(w.Body).Decode(&sess)

	w = do(t, r, http.MethodGet, "/api/players/42/active-session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("active: expected 200, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+sess.ID+"/situation", "")
	if w.Code != http.StatusOK {
		t.Fatalf("situation: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+sess.ID+"/answers", `{"text":"I would speak to the team"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("answer: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var outcome RoundOutcome
	json.NewDecoder(w.Body).Decode(&outcome)
	if !outcome.Accepted || !outcome.RoundComplete {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+sess.ID+"/clarification", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("clarification: expected 204, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+sess.ID+"/advance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("advance: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var adv AdvanceResult
	json.NewDecoder(w.Body).Decode(&adv)
	if !adv.Complete {
		t.Error("expected complete")
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+sess.ID+"/complete", "")
	if w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPost, "/api/sessions/"+sess.ID+"/complete", "")
	if w.Code != http.StatusConflict {
		t.Errorf("second complete: expected 409, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+sess.ID+"/results", "")
	var results []SessionResult
	json.NewDecoder(w.Body).Decode(&results)
	if len(results) != 7 {
		t.Errorf("expected 7 results, got %d", len(results))
	}

	w = do(t, r, http.MethodGet, "/api/players/42/active-session", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("active after completion: expected 404, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/players/42/sessions", "")
	var history []Session
	json.NewDecoder(w.Body).Decode(&history)
	if len(history) != 1 || history[0].ID != sess.ID || history[0].Status != StatusCompleted {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestHandleListSessionsEmpty(t *testing.T) {
	r, _ := setupTestRouter(t, Options{})
	w := do(t, r, http.MethodGet, "/api/players/7/sessions", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/api/players/x/sessions", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
}

func TestHandleCreateSessionErrors(t *testing.T) {
	r, _ := setupTestRouter(t, Options{})

	if w := do(t, r, http.MethodPost, "/api/sessions", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/sessions", `{"language":"en"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing player: expected 400, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/sessions", `{"player_id":1000}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown player: expected 404, got %d", w.Code)
	}
}

func TestHandleUnknownSession(t *testing.T) {
	r, _ := setupTestRouter(t, Options{})
	if w := do(t, r, http.MethodGet, "/api/sessions/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleTransientErrorIsRetryable(t *testing.T) {
	r, env := setupTestRouter(t, Options{})
	sess, _ := env.engine.CreateSession(t.Context(), 42, "en")
	env.scenarios.err = errors.New("provider down")

	w := do(t, r, http.MethodGet, "/api/sessions/"+sess.ID+"/situation", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["retryable"] != true {
		t.Errorf("expected retryable=true, got %v", body)
	}
}

func TestHandleAbandon(t *testing.T) {
	r, env := setupTestRouter(t, Options{})
	sess, _ := env.engine.CreateSession(t.Context(), 42, "en")

	if w := do(t, r, http.MethodPost, "/api/sessions/"+sess.ID+"/abandon", ""); w.Code != http.StatusOK {
		t.Fatalf("abandon: expected 200, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/sessions/"+sess.ID+"/abandon", ""); w.Code != http.StatusOK {
		t.Errorf("second abandon: expected 200, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/sessions/"+sess.ID+"/situation", ""); w.Code != http.StatusConflict {
		t.Errorf("situation after abandon: expected 409, got %d", w.Code)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrSubjectNotFound, http.StatusNotFound},
		{ErrSessionNotFound, http.StatusNotFound},
		{ErrSessionTerminal, http.StatusConflict},
		{ErrSessionInvalidPhase, http.StatusConflict},
		{ErrUnknownTraitCode, http.StatusBadRequest},
		{ErrNoScoresRecorded, http.StatusUnprocessableEntity},
		{ErrAnalysisFailed, http.StatusServiceUnavailable},
		{ErrGenerationFailed, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
