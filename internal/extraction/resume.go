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

const resumeTimeout = 30 * time.Second

// Resume text can be large; anything beyond this adds noise, not fields.
const maxResumeChars = 20000

const resumeRules = `Return the result as a single JSON object holding only the fields that are present in the resume.
If a piece of information is not in the resume, do not include its key. Never invent or assume values.
Do not include any preamble or prose outside the JSON.`

// buildResumePrompt is the multi-field variant used for resume ingest.
// Unlike the per-turn instruction it asks for a plain object: a resume is
// a document, not a turn, so the single-field cap does not apply.
func buildResumePrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an extraction engine for a hiring assistant. Extract any of the following fields that are explicitly present in the candidate's resume:\n")
	for _, f := range schema.Fields {
		fmt.Fprintf(&sb, "- %s (string)\n", f)
	}
	sb.WriteString("\n")
	sb.WriteString(resumeRules)
	return sb.String()
}

// ExtractResume pulls every recognized field it can from resume text and
// upserts each into the session's profile. Malformed model output fails
// open to an empty result; store write failures are returned.
func (e *Extractor) ExtractResume(ctx context.Context, sessionID, resumeText string) (map[schema.Field]string, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, nil
	}
	if len(resumeText) > maxResumeChars {
		resumeText = resumeText[:maxResumeChars]
	}

	ctx, cancel := context.WithTimeout(ctx, resumeTimeout)
	defer cancel()

	raw, err := e.client.Complete(ctx, buildResumePrompt(), resumeText)
	if err != nil {
		slog.Warn("resume extraction completion failed", "session", sessionID, "error", err)
		return nil, nil
	}

	fields := parseObject(raw)
	if len(fields) == 0 {
		return nil, nil
	}

	extracted := make(map[schema.Field]string)
	for key, value := range fields {
		if !schema.Known(key) {
			slog.Warn("resume extraction returned unknown field, discarding", "session", sessionID, "field", key)
			continue
		}
		if err := e.store.UpsertField(sessionID, key, value); err != nil {
			return extracted, fmt.Errorf("upserting field %q: %w", key, err)
		}
		extracted[schema.Field(key)] = value
	}

	slog.Info("resume fields extracted", "session", sessionID, "count", len(extracted))
	return extracted, nil
}

// parseObject strictly decodes the first brace-delimited object span in
// the raw completion text into string pairs. Any decode failure yields nil.
func parseObject(raw string) map[string]string {
	start := strings.Index(raw, "{")
	if start == -1 {
		return nil
	}
	end := strings.LastIndex(raw, "}")
	if end <= start {
		return nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		logMalformed(raw, err)
		return nil
	}
	return fields
}
