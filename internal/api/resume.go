package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

const maxResumeBodySize = 10 << 20 // 10MB

// ResumeResponse is the reply of POST /v1/resume.
type ResumeResponse struct {
	Fields    map[string]string `json:"fields"`
	Extracted int               `json:"extracted"`
}

// handleResume ingests a PDF resume: extract plain text, pre-fill profile
// fields from it, and keep the raw text for audit.
func handleResume(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxResumeBodySize)
		defer r.Body.Close()

		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
			httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "content type %q is not application/pdf", ct)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}

		text, err := extractPDFText(body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "parsing PDF: %v", err)
			return
		}

		filename := r.Header.Get("X-Filename")
		extracted, err := deps.Sessions.IngestResume(r.Context(), sessionID(r), filename, text)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "ingesting resume: %v", err)
			return
		}

		resp := ResumeResponse{Fields: make(map[string]string, len(extracted))}
		for k, v := range extracted {
			resp.Fields[string(k)] = v
			resp.Extracted++
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// extractPDFText pulls the plain text out of a PDF document.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return buf.String(), nil
}
