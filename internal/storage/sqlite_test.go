package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestAppendAndListMessages(t *testing.T) {
	s := openTestStore(t)

	if err := s.AppendMessage("s1", RoleUser, "hello"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.AppendMessage("s1", RoleAssistant, "hi, what is your name?"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.AppendMessage("other", RoleUser, "unrelated"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	msgs, err := s.ListMessages("s1", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("first message = %q/%q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != RoleAssistant {
		t.Errorf("second message role = %q, want assistant", msgs[1].Role)
	}
	if msgs[0].Seq >= msgs[1].Seq {
		t.Errorf("seq not strictly increasing: %d >= %d", msgs[0].Seq, msgs[1].Seq)
	}
}

// TestRecentMessagesWindow verifies the last-N window comes back in
// chronological order.
func TestRecentMessagesWindow(t *testing.T) {
	s := openTestStore(t)

	contents := []string{"a", "b", "c", "d", "e"}
	for _, c := range contents {
		if err := s.AppendMessage("s1", RoleUser, c); err != nil {
			t.Fatalf("AppendMessage(%q): %v", c, err)
		}
	}

	msgs, err := s.RecentMessages("s1", 3)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"c", "d", "e"} {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msgs[i].Content, want)
		}
	}
}

// TestUpsertFieldOverwrite stores the same field twice and verifies exactly
// one value remains, equal to the second write.
func TestUpsertFieldOverwrite(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertField("s1", "name", "Jane Doe"); err != nil {
		t.Fatalf("UpsertField: %v", err)
	}
	if err := s.UpsertField("s1", "name", "Jane A. Doe"); err != nil {
		t.Fatalf("UpsertField (second): %v", err)
	}

	got, err := s.GetField("s1", "name")
	if err != nil {
		t.Fatalf("GetField: %v", err)
	}
	if got != "Jane A. Doe" {
		t.Errorf("GetField = %q, want %q", got, "Jane A. Doe")
	}

	fields, err := s.GetFields("s1")
	if err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	if len(fields) != 1 {
		t.Errorf("got %d stored fields, want 1", len(fields))
	}
}

func TestGetFieldNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetField("s1", "email")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetField on missing field = %v, want ErrNotFound", err)
	}
}

// TestSessionIsolation verifies fields and messages are scoped per session.
func TestSessionIsolation(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertField("s1", "name", "Jane"); err != nil {
		t.Fatalf("UpsertField: %v", err)
	}
	if err := s.AppendMessage("s1", RoleUser, "hi"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	fields, err := s.GetFields("s2")
	if err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("session s2 sees %d fields from s1", len(fields))
	}

	msgs, err := s.ListMessages("s2", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("session s2 sees %d messages from s1", len(msgs))
	}
}

// TestClearResetsSession verifies ClearMessages + ClearFields return the
// session to its initial empty state.
func TestClearResetsSession(t *testing.T) {
	s := openTestStore(t)

	if err := s.AppendMessage("s1", RoleUser, "hi"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.UpsertField("s1", "name", "Jane"); err != nil {
		t.Fatalf("UpsertField: %v", err)
	}

	if err := s.ClearMessages("s1"); err != nil {
		t.Fatalf("ClearMessages: %v", err)
	}
	if err := s.ClearFields("s1"); err != nil {
		t.Fatalf("ClearFields: %v", err)
	}

	msgs, err := s.ListMessages("s1", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages remain after clear: %d", len(msgs))
	}

	fields, err := s.GetFields("s1")
	if err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("fields remain after clear: %d", len(fields))
	}
}

func TestSaveAndGetResume(t *testing.T) {
	s := openTestStore(t)

	want := Resume{
		ID:        uuid.New().String(),
		SessionID: "s1",
		Filename:  "jane.pdf",
		Content:   "Jane Doe\njane@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveResume(want); err != nil {
		t.Fatalf("SaveResume: %v", err)
	}

	got, err := s.GetResume(want.ID)
	if err != nil {
		t.Fatalf("GetResume: %v", err)
	}
	if got.SessionID != want.SessionID || got.Filename != want.Filename || got.Content != want.Content {
		t.Errorf("GetResume = %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}
