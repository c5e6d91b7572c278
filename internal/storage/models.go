package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Message roles. The conversation log only ever contains these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session's append-only conversation log.
// Seq is assigned by the store and defines the total order; messages are
// immutable once written.
type Message struct {
	Seq       int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Resume is a raw resume document kept for audit after ingest.
type Resume struct {
	ID        string
	SessionID string
	Filename  string
	Content   string
	CreatedAt time.Time
}
