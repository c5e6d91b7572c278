package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/talentscout/scout/internal/extraction"
	"github.com/talentscout/scout/internal/schema"
	"github.com/talentscout/scout/internal/storage"
)

// stubCompleter implements the Completer interface with a canned response.
type stubCompleter struct {
	response   string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	return s.response, s.err
}

func newTestOrchestrator(t *testing.T, extractionResponse, chatResponse string) (*Orchestrator, *storage.Store, *stubCompleter, *stubCompleter) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	extractionStub := &stubCompleter{response: extractionResponse}
	chatStub := &stubCompleter{response: chatResponse}
	o := New(store, extraction.New(extractionStub, store), chatStub, 0)
	return o, store, extractionStub, chatStub
}

func fillProfile(t *testing.T, store *storage.Store, sessionID string, skip ...schema.Field) {
	t.Helper()
	skipped := make(map[schema.Field]bool)
	for _, f := range skip {
		skipped[f] = true
	}
	for _, f := range schema.Fields {
		if skipped[f] {
			continue
		}
		if err := store.UpsertField(sessionID, string(f), "answer for "+string(f)); err != nil {
			t.Fatalf("UpsertField(%s): %v", f, err)
		}
	}
}

func TestHandleTurnPersistsUserThenAssistant(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t, `[{"name": "Jane Doe"}]`, "Thanks Jane! What is your email?")

	reply, err := o.HandleTurn(context.Background(), "s1", "My name is Jane Doe")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if reply != "Thanks Jane! What is your email?" {
		t.Errorf("reply = %q", reply)
	}

	msgs, err := store.ListMessages("s1", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != storage.RoleUser || msgs[1].Role != storage.RoleAssistant {
		t.Errorf("roles = %q, %q; want user then assistant", msgs[0].Role, msgs[1].Role)
	}
	if msgs[0].Seq >= msgs[1].Seq {
		t.Errorf("user message seq %d not before assistant seq %d", msgs[0].Seq, msgs[1].Seq)
	}
}

// TestHandleTurnMergesBeforePolicy verifies the freshly extracted field is
// visible to the dialogue policy within the same turn.
func TestHandleTurnMergesBeforePolicy(t *testing.T) {
	o, _, _, chat := newTestOrchestrator(t, `[{"name": "Jane Doe"}]`, "ok")

	if _, err := o.HandleTurn(context.Background(), "s1", "My name is Jane Doe"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if !strings.Contains(chat.lastSystem, "name : Jane Doe") {
		t.Errorf("instruction does not contain the just-extracted field:\n%s", chat.lastSystem)
	}
	if chat.lastUser != "My name is Jane Doe" {
		t.Errorf("conversational call user message = %q", chat.lastUser)
	}

	info, err := o.CollectedInfo("s1")
	if err != nil {
		t.Fatalf("CollectedInfo: %v", err)
	}
	if info[schema.FieldName] != "Jane Doe" {
		t.Errorf("profile = %v, want name persisted", info)
	}
}

// TestHandleTurnSkipsExtractionWhenComplete asserts, via call count on the
// extraction stub, that no extraction call is issued once all ten fields
// are present.
func TestHandleTurnSkipsExtractionWhenComplete(t *testing.T) {
	o, store, extractionStub, chat := newTestOrchestrator(t, `[{}]`, "Tell me about goroutines.")
	fillProfile(t, store, "s1")

	if _, err := o.HandleTurn(context.Background(), "s1", "ready for questions"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if extractionStub.calls != 0 {
		t.Errorf("extraction called %d times on a complete profile, want 0", extractionStub.calls)
	}
	if chat.calls != 1 {
		t.Errorf("conversational completion called %d times, want 1", chat.calls)
	}
	if !strings.Contains(chat.lastSystem, "technical questions") {
		t.Error("instruction at 10/10 does not reference technical questioning")
	}
	if strings.Contains(chat.lastSystem, "next piece of information to request") {
		t.Error("instruction at 10/10 still collects profile fields")
	}
}

func TestHandleTurnCompletionFailurePersistsNothing(t *testing.T) {
	o, store, _, chat := newTestOrchestrator(t, `[{}]`, "")
	chat.err = errors.New("backend down")

	_, err := o.HandleTurn(context.Background(), "s1", "hello")
	if err == nil {
		t.Fatal("expected error when conversational completion fails")
	}

	msgs, err := store.ListMessages("s1", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("%d messages persisted after failed turn, want 0", len(msgs))
	}
}

func TestHandleTurnMalformedExtractionProceeds(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t, "garbage {{{", "What is your name?")

	reply, err := o.HandleTurn(context.Background(), "s1", "hmm")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if reply != "What is your name?" {
		t.Errorf("reply = %q", reply)
	}

	info, err := o.CollectedInfo("s1")
	if err != nil {
		t.Fatalf("CollectedInfo: %v", err)
	}
	if len(info) != 0 {
		t.Errorf("profile = %v, want empty", info)
	}
}

// TestHandleTurnTenthField walks the 9/10 scenario: an utterance carrying
// two fields completes the profile with the first one only.
func TestHandleTurnTenthField(t *testing.T) {
	o, store, _, _ := newTestOrchestrator(t, `[{"languages": "Python, Go", "frameworks": "Django"}]`, "ok")
	fillProfile(t, store, "s1", schema.FieldLanguages)

	if _, err := o.HandleTurn(context.Background(), "s1", "I know Python and Go, plus Django"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	info, err := o.CollectedInfo("s1")
	if err != nil {
		t.Fatalf("CollectedInfo: %v", err)
	}
	if !info.Complete() {
		t.Errorf("profile incomplete after tenth field: %v", info.Missing())
	}
	if info[schema.FieldLanguages] != "Python, Go" {
		t.Errorf("languages = %q", info[schema.FieldLanguages])
	}
	// The second key must not have overwritten the existing value.
	if info[schema.FieldFrameworks] != "answer for frameworks" {
		t.Errorf("frameworks overwritten to %q", info[schema.FieldFrameworks])
	}
}

func TestHandleTurnPassesLastQuestionToExtraction(t *testing.T) {
	o, store, extractionStub, _ := newTestOrchestrator(t, `[{}]`, "ok")

	if err := store.AppendMessage("s1", storage.RoleUser, "hi"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := store.AppendMessage("s1", storage.RoleAssistant, "What is your phone number?"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if _, err := o.HandleTurn(context.Background(), "s1", "555-0100"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if !strings.Contains(extractionStub.lastSystem, "What is your phone number?") {
		t.Error("extraction instruction missing the last question asked")
	}
}

func TestHandleTurnHistoryWindow(t *testing.T) {
	o, store, _, chat := newTestOrchestrator(t, `[{}]`, "ok")

	for i := 0; i < 25; i++ {
		if err := store.AppendMessage("s1", storage.RoleUser, fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	if _, err := o.HandleTurn(context.Background(), "s1", "hello"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if !strings.Contains(chat.lastSystem, "Last 20 messages") {
		t.Error("instruction not limited to the last 20 messages")
	}
	if strings.Contains(chat.lastSystem, "msg 4\n") {
		t.Error("instruction contains a message outside the 20-message window")
	}
	if !strings.Contains(chat.lastSystem, "msg 24") {
		t.Error("instruction missing the most recent message")
	}
}

func TestReset(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t, `[{"name": "Jane"}]`, "ok")

	if _, err := o.HandleTurn(context.Background(), "s1", "My name is Jane"); err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	if err := o.Reset("s1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	history, err := o.History("s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history has %d messages after reset", len(history))
	}

	info, err := o.CollectedInfo("s1")
	if err != nil {
		t.Fatalf("CollectedInfo: %v", err)
	}
	if len(info) != 0 {
		t.Errorf("profile has %d fields after reset", len(info))
	}
}

func TestIngestResumePrefillsProfile(t *testing.T) {
	o, _, extractionStub, _ := newTestOrchestrator(t, `{"name": "Jane Doe", "email": "jane@example.com"}`, "ok")

	got, err := o.IngestResume(context.Background(), "s1", "jane.pdf", "Jane Doe — jane@example.com")
	if err != nil {
		t.Fatalf("IngestResume: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("extracted %d fields, want 2", len(got))
	}
	if extractionStub.calls != 1 {
		t.Errorf("extraction called %d times, want 1", extractionStub.calls)
	}

	info, err := o.CollectedInfo("s1")
	if err != nil {
		t.Fatalf("CollectedInfo: %v", err)
	}
	if info[schema.FieldName] != "Jane Doe" || info[schema.FieldEmail] != "jane@example.com" {
		t.Errorf("profile = %v", info)
	}
}
