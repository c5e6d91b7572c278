// Package extraction turns free-form candidate utterances into structured
// profile field updates using the completion backend.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talentscout/scout/internal/schema"
)

const extractionTimeout = 15 * time.Second

// Completer is the completion-service call the engine needs.
type Completer interface {
	Complete(ctx context.Context, systemInstruction, userMessage string) (string, error)
}

// FieldStore is the field-upsert side of the conversation store.
type FieldStore interface {
	UpsertField(sessionID, field, value string) error
}

// Update is one extracted field update.
type Update struct {
	Field schema.Field
	Value string
}

// Extractor runs the extraction-only completion call and merges the result
// into the stored candidate profile.
//
// Policy: at most one field is merged per utterance. When the model returns
// several fields, only the first key-value pair is kept. This cap is a
// contract, not a parsing accident; callers must not expect multi-field
// merges from a single turn.
type Extractor struct {
	client Completer
	store  FieldStore
}

// New creates an Extractor using the given completion client and field store.
func New(client Completer, store FieldStore) *Extractor {
	return &Extractor{client: client, store: store}
}

// Extract analyses one utterance and upserts at most one field update into
// the session's profile. On any completion failure or malformed model
// output it returns (nil, nil) — extraction must never block the turn.
// The only returned error is a store write failure, which breaks the
// durability guarantee and is fatal for the turn.
func (e *Extractor) Extract(ctx context.Context, sessionID, utterance, lastQuestion string) (*Update, error) {
	if utterance == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()

	raw, err := e.client.Complete(ctx, BuildPrompt(lastQuestion), utterance)
	if err != nil {
		slog.Warn("extraction completion failed", "session", sessionID, "error", err)
		return nil, nil
	}

	field, value, ok := parseFirstField(raw)
	if !ok {
		return nil, nil
	}

	if !schema.Known(field) {
		// Storing an unrecognized key would corrupt the completion count.
		slog.Warn("extraction returned unknown field, discarding", "session", sessionID, "field", field)
		return nil, nil
	}

	if err := e.store.UpsertField(sessionID, field, value); err != nil {
		return nil, fmt.Errorf("upserting field %q: %w", field, err)
	}

	slog.Debug("field extracted", "session", sessionID, "field", field)
	return &Update{Field: schema.Field(field), Value: value}, nil
}

// parseFirstField locates the first bracket-delimited span in the raw
// completion text and strictly decodes the first key-value pair of the
// object inside it. The model output is untrusted: preamble, trailing
// prose, and malformed structure all decode to "nothing extracted".
func parseFirstField(raw string) (field, value string, ok bool) {
	start := strings.Index(raw, "[{")
	if start == -1 {
		return "", "", false
	}

	span := raw[start+1:]
	end := strings.Index(span, "]")
	if end == -1 {
		return "", "", false
	}
	obj := span[:end]

	dec := json.NewDecoder(strings.NewReader(obj))

	tok, err := dec.Token()
	if err != nil {
		logMalformed(raw, err)
		return "", "", false
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '{' {
		logMalformed(raw, fmt.Errorf("expected object, got %v", tok))
		return "", "", false
	}

	if !dec.More() {
		// [{}] — nothing present in the utterance.
		return "", "", false
	}

	keyTok, err := dec.Token()
	if err != nil {
		logMalformed(raw, err)
		return "", "", false
	}
	key, isString := keyTok.(string)
	if !isString {
		logMalformed(raw, fmt.Errorf("expected string key, got %v", keyTok))
		return "", "", false
	}

	if err := dec.Decode(&value); err != nil {
		logMalformed(raw, err)
		return "", "", false
	}

	return key, value, true
}

func logMalformed(raw string, err error) {
	slog.Warn("malformed extraction output, treating as no update", "error", err, "response", raw)
}
