package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrIndexUnavailable is returned by a conversation store that cannot serve
// the owner-scoped query sorted by updated_at (e.g. a document backend with a
// missing composite index). Callers fall back to the unsorted query and sort
// client-side.
var ErrIndexUnavailable = errors.New("sorted query index unavailable")

// Message senders. Messages are immutable once appended.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Profile document kinds. Two independent profile aggregates coexist per
// owner and are compiled into the prompt separately.
const (
	ProfileKindPersonality = "personality"
	ProfileKindDynamic     = "dynamic"
)

type Conversation struct {
	ID        string
	OwnerID   string
	Subject   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []Message
}

type Message struct {
	ID        string
	Sender    string
	Content   string
	CreatedAt time.Time
}

// ProfileDoc is a persisted profile aggregate stored as an opaque JSON
// document. Merge semantics live above the store: callers read, patch at the
// field level, and write back.
type ProfileDoc struct {
	OwnerID   string
	Kind      string
	Doc       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
