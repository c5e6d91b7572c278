// Package session glues extraction, dialogue policy, and the conversation
// store into one interview turn.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talentscout/scout/internal/extraction"
	"github.com/talentscout/scout/internal/policy"
	"github.com/talentscout/scout/internal/schema"
	"github.com/talentscout/scout/internal/storage"
)

const defaultHistoryLimit = 20

// Completer is the conversational completion call the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, systemInstruction, userMessage string) (string, error)
}

// Orchestrator runs interview turns. Turns on the same session are
// serialized; the store itself stays last-write-wins.
type Orchestrator struct {
	store        *storage.Store
	extractor    *extraction.Extractor
	completer    Completer
	historyLimit int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Orchestrator. A historyLimit <= 0 uses the default (20).
func New(store *storage.Store, extractor *extraction.Extractor, completer Completer, historyLimit int) *Orchestrator {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Orchestrator{
		store:        store,
		extractor:    extractor,
		completer:    completer,
		historyLimit: historyLimit,
		locks:        make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[sessionID] = l
	}
	return l
}

// HandleTurn processes one candidate utterance and returns the assistant's
// reply verbatim.
//
// A failed completion is fatal for the turn and persists nothing. Messages
// are persisted user-then-assistant; readers rely on that order.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	turnID := uuid.New().String()
	start := time.Now()

	history, err := o.store.RecentMessages(sessionID, o.historyLimit)
	if err != nil {
		return "", fmt.Errorf("reading history: %w", err)
	}

	fields, err := o.store.GetFields(sessionID)
	if err != nil {
		return "", fmt.Errorf("reading fields: %w", err)
	}
	profile := toProfile(fields)

	if profile.Complete() {
		slog.Debug("profile complete, skipping extraction", "session", sessionID, "turn", turnID)
	} else {
		upd, err := o.extractor.Extract(ctx, sessionID, userText, lastAssistantMessage(history))
		if err != nil {
			return "", err
		}
		if upd != nil {
			profile[upd.Field] = upd.Value
		}
	}

	instruction := policy.BuildInstruction(profile, history)

	reply, err := o.completer.Complete(ctx, instruction, userText)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	if err := o.store.AppendMessage(sessionID, storage.RoleUser, userText); err != nil {
		return "", fmt.Errorf("persisting user message: %w", err)
	}
	if err := o.store.AppendMessage(sessionID, storage.RoleAssistant, reply); err != nil {
		// The user message is already durable; surfacing the error is all
		// we can do without a transactional append.
		return "", fmt.Errorf("persisting assistant message: %w", err)
	}

	slog.Info("turn complete",
		"session", sessionID,
		"turn", turnID,
		"collected", len(profile),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// History returns the session's full persisted conversation in order.
func (o *Orchestrator) History(sessionID string) ([]storage.Message, error) {
	return o.store.ListMessages(sessionID, 0)
}

// CollectedInfo returns the session's current candidate profile.
func (o *Orchestrator) CollectedInfo(sessionID string) (schema.Profile, error) {
	fields, err := o.store.GetFields(sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading fields: %w", err)
	}
	return toProfile(fields), nil
}

// Reset clears both the conversation log and the collected fields,
// returning the session to its initial empty state.
func (o *Orchestrator) Reset(sessionID string) error {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.store.ClearMessages(sessionID); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	if err := o.store.ClearFields(sessionID); err != nil {
		return fmt.Errorf("clearing fields: %w", err)
	}
	slog.Info("session reset", "session", sessionID)
	return nil
}

// IngestResume stores the resume text for audit and pre-fills profile
// fields from it.
func (o *Orchestrator) IngestResume(ctx context.Context, sessionID, filename, text string) (map[schema.Field]string, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.store.SaveResume(storage.Resume{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Filename:  filename,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("saving resume: %w", err)
	}

	return o.extractor.ExtractResume(ctx, sessionID, text)
}

// toProfile filters stored fields down to the recognized schema. Unknown
// rows (from older schema versions) are ignored rather than counted.
func toProfile(fields map[string]string) schema.Profile {
	p := make(schema.Profile, len(fields))
	for k, v := range fields {
		if schema.Known(k) {
			p[schema.Field(k)] = v
		}
	}
	return p
}

// lastAssistantMessage returns the content of the most recent assistant
// message, or "" when the conversation has none yet.
func lastAssistantMessage(history []storage.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == storage.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}
