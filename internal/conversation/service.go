// Package conversation is the access-controlled adapter over the persisted
// conversation records. Every operation is scoped by owner id; a mismatch is
// an explicit error, never a silent no-op, because it is the only safeguard
// against cross-user data leakage.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/inima-app/inima/internal/storage"
)

// ErrAccessDenied is returned when a conversation exists but belongs to a
// different owner than the caller.
var ErrAccessDenied = errors.New("access denied")

// Store defines the persistence operations the service needs.
// Implemented by storage.Store.
type Store interface {
	CreateConversation(ctx context.Context, c storage.Conversation) error
	GetConversation(ctx context.Context, id string) (storage.Conversation, error)
	ListConversationsByOwnerSorted(ctx context.Context, ownerID string) ([]storage.Conversation, error)
	ListConversationsByOwner(ctx context.Context, ownerID string) ([]storage.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, m storage.Message) error
	RenameConversation(ctx context.Context, id, subject string, updatedAt time.Time) error
	DeleteConversation(ctx context.Context, id string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store Store
	clock Clock
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: realClock{}}
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
func NewServiceWithClock(store Store, clock Clock) *Service {
	return &Service{store: store, clock: clock}
}

// Create starts a new conversation owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID, subject string) (storage.Conversation, error) {
	now := s.clock.Now()
	c := storage.Conversation{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, c); err != nil {
		return storage.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	return c, nil
}

// Get loads a conversation after verifying ownership.
func (s *Service) Get(ctx context.Context, id, ownerID string) (storage.Conversation, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return storage.Conversation{}, err
	}
	if c.OwnerID != ownerID {
		return storage.Conversation{}, ErrAccessDenied
	}
	return c, nil
}

// ListByOwner returns the owner's conversations ordered by updated_at
// descending. When the store cannot serve the sorted query (missing index on
// a document backend) it falls back to the unsorted query plus a client-side
// sort — the end ordering is identical either way.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]storage.Conversation, error) {
	convs, err := s.store.ListConversationsByOwnerSorted(ctx, ownerID)
	if err == nil {
		return convs, nil
	}
	if !errors.Is(err, storage.ErrIndexUnavailable) {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	convs, err = s.store.ListConversationsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations (fallback): %w", err)
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

// AppendMessage appends an immutable message to the conversation and bumps
// updated_at.
func (s *Service) AppendMessage(ctx context.Context, id, ownerID, sender, content string) (storage.Message, error) {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return storage.Message{}, err
	}
	m := storage.Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.AppendMessage(ctx, id, m); err != nil {
		return storage.Message{}, fmt.Errorf("appending message: %w", err)
	}
	return m, nil
}

// Rename changes the conversation subject.
func (s *Service) Rename(ctx context.Context, id, ownerID, subject string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.store.RenameConversation(ctx, id, subject, s.clock.Now()); err != nil {
		return fmt.Errorf("renaming conversation: %w", err)
	}
	return nil
}

// Delete removes the conversation and its messages.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}
