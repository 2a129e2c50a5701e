package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the assessment session API routes.
func RegisterRoutes(r chi.Router, engine *Engine) {
	r.Post("/api/sessions", handleCreateSession(engine))
	r.Get("/api/players/{id}/active-session", handleActiveSession(engine))
	r.Get("/api/players/{id}/sessions", handleListSessions(engine))
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", handleGetSession(engine))
		r.Get("/situation", handleSituation(engine))
		r.Post("/answers", handleMainAnswer(engine))
		r.Get("/clarification", handleNextClarification(engine))
		r.Post("/clarifications", handleClarificationAnswer(engine))
		r.Post("/advance", handleAdvance(engine))
		r.Post("/complete", handleComplete(engine))
		r.Post("/abandon", handleAbandon(engine))
		r.Get("/results", handleResults(engine))
	})
}

type createSessionRequest struct {
	PlayerID int64  `json:"player_id"`
	Language string `json:"language"`
}

type answerRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	Session  *Session  `json:"session"`
	Progress *Progress `json:"progress"`
}

func handleCreateSession(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.PlayerID <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "player_id is required"})
			return
		}

		sess, err := engine.CreateSession(r.Context(), req.PlayerID, req.Language)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleListSessions(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player id"})
			return
		}

		sessions, err := engine.ListSessions(r.Context(), playerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if sessions == nil {
			sessions = []Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

func handleActiveSession(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player id"})
			return
		}

		sess, err := engine.GetActiveSession(r.Context(), playerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if sess == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleGetSession(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := engine.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		progress, err := engine.Progress(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Progress: progress})
	}
}

func handleSituation(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sit, err := engine.GetCurrentScenario(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sit)
	}
}

func handleMainAnswer(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		outcome, err := engine.SubmitMainAnswer(r.Context(), chi.URLParam(r, "id"), req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

func handleNextClarification(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prompt, err := engine.NextClarification(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if prompt == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, prompt)
	}
}

func handleClarificationAnswer(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClarificationInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.TraitCode == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "trait_code is required"})
			return
		}

		outcome, err := engine.SubmitClarificationAnswer(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

func handleAdvance(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := engine.AdvanceToNextScenario(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleComplete(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := engine.CompleteSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleAbandon(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.AbandonSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
	}
}

func handleResults(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := engine.Results(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if results == nil {
			results = []SessionResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

// StatusCode maps an engine error to the HTTP status reported for it.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrSubjectNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionTerminal), errors.Is(err, ErrSessionInvalidPhase):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownTraitCode):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoScoresRecorded):
		return http.StatusUnprocessableEntity
	case IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusCode(err), map[string]interface{}{
		"error":     err.Error(),
		"retryable": IsTransient(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
