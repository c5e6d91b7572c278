// Package api exposes the interview over HTTP for presentation clients,
// and over MCP for recruiter tooling.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talentscout/scout/internal/schema"
	"github.com/talentscout/scout/internal/storage"
)

const maxTurnBodySize = 1 << 20 // 1MB

// defaultSessionID preserves the original single-shared-session behavior
// for clients that do not send a session header.
const defaultSessionID = "default"

// Orchestrator is the session surface the handlers need.
type Orchestrator interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (string, error)
	History(sessionID string) ([]storage.Message, error)
	CollectedInfo(sessionID string) (schema.Profile, error)
	Reset(sessionID string) error
	IngestResume(ctx context.Context, sessionID, filename, text string) (map[schema.Field]string, error)
}

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Sessions Orchestrator
	Token    string
}

// NewHandler returns the HTTP API. All routes except /health require the
// bearer token. The session is selected by the X-Session-ID header.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/turn", handleTurn(deps))
		r.Get("/v1/history", handleHistory(deps))
		r.Get("/v1/profile", handleProfile(deps))
		r.Post("/v1/reset", handleReset(deps))
		r.Post("/v1/resume", handleResume(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	return defaultSessionID
}

// TurnRequest is the body of POST /v1/turn.
type TurnRequest struct {
	Message string `json:"message"`
}

// TurnResponse is the reply of POST /v1/turn.
type TurnResponse struct {
	Reply string `json:"reply"`
}

func handleTurn(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxTurnBodySize)
		defer r.Body.Close()

		var req TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		reply, err := deps.Sessions.HandleTurn(r.Context(), sessionID(r), req.Message)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "turn failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TurnResponse{Reply: reply})
	}
}

// HistoryMessage is one rendered message in GET /v1/history.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryStats summarizes the conversation.
type HistoryStats struct {
	Total     int `json:"total"`
	User      int `json:"user"`
	Assistant int `json:"assistant"`
}

// HistoryResponse is the reply of GET /v1/history.
type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
	Stats    HistoryStats     `json:"stats"`
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := deps.Sessions.History(sessionID(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load history: %v", err)
			return
		}

		resp := HistoryResponse{Messages: []HistoryMessage{}}
		for _, m := range msgs {
			resp.Messages = append(resp.Messages, HistoryMessage{Role: m.Role, Content: m.Content})
			resp.Stats.Total++
			switch m.Role {
			case storage.RoleUser:
				resp.Stats.User++
			case storage.RoleAssistant:
				resp.Stats.Assistant++
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// ProfileResponse is the reply of GET /v1/profile.
type ProfileResponse struct {
	Fields    map[string]string `json:"fields"`
	Collected int               `json:"collected"`
	Total     int               `json:"total"`
	Complete  bool              `json:"complete"`
}

func handleProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := deps.Sessions.CollectedInfo(sessionID(r))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load profile: %v", err)
			return
		}

		fields := make(map[string]string, len(profile))
		for k, v := range profile {
			fields[string(k)] = v
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ProfileResponse{
			Fields:    fields,
			Collected: len(profile),
			Total:     len(schema.Fields),
			Complete:  profile.Complete(),
		})
	}
}

func handleReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.Reset(sessionID(r)); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reset session: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
