package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inima-app/inima/internal/storage"
)

// mockStore is an in-memory Store with switchable sorted-query behavior.
type mockStore struct {
	convs      map[string]storage.Conversation
	sortedErr  error
	listErr    error
	appendErr  error
	sortedHits int
	listHits   int
}

func newMockStore() *mockStore {
	return &mockStore{convs: make(map[string]storage.Conversation)}
}

func (s *mockStore) CreateConversation(ctx context.Context, c storage.Conversation) error {
	s.convs[c.ID] = c
	return nil
}

func (s *mockStore) GetConversation(ctx context.Context, id string) (storage.Conversation, error) {
	c, ok := s.convs[id]
	if !ok {
		return storage.Conversation{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *mockStore) ListConversationsByOwnerSorted(ctx context.Context, ownerID string) ([]storage.Conversation, error) {
	s.sortedHits++
	if s.sortedErr != nil {
		return nil, s.sortedErr
	}
	out := s.ownerConvs(ownerID)
	// Mirrors the backend ordering contract.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UpdatedAt.After(out[i].UpdatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *mockStore) ListConversationsByOwner(ctx context.Context, ownerID string) ([]storage.Conversation, error) {
	s.listHits++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ownerConvs(ownerID), nil
}

func (s *mockStore) ownerConvs(ownerID string) []storage.Conversation {
	var out []storage.Conversation
	for _, c := range s.convs {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out
}

func (s *mockStore) AppendMessage(ctx context.Context, conversationID string, m storage.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	c, ok := s.convs[conversationID]
	if !ok {
		return storage.ErrNotFound
	}
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = m.CreatedAt
	s.convs[conversationID] = c
	return nil
}

func (s *mockStore) RenameConversation(ctx context.Context, id, subject string, updatedAt time.Time) error {
	c, ok := s.convs[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.Subject = subject
	c.UpdatedAt = updatedAt
	s.convs[id] = c
	return nil
}

func (s *mockStore) DeleteConversation(ctx context.Context, id string) error {
	if _, ok := s.convs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.convs, id)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestCreateAndGet(t *testing.T) {
	store := newMockStore()
	svc := NewServiceWithClock(store, fixedClock{testNow})
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", "prima discuție")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" {
		t.Fatal("Create returned empty id")
	}
	if !c.CreatedAt.Equal(testNow) || !c.UpdatedAt.Equal(testNow) {
		t.Errorf("timestamps = %v/%v, want %v", c.CreatedAt, c.UpdatedAt, testNow)
	}

	got, err := svc.Get(ctx, c.ID, "owner-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Subject != "prima discuție" {
		t.Errorf("Subject = %q", got.Subject)
	}
}

func TestGetWrongOwnerDenied(t *testing.T) {
	store := newMockStore()
	svc := NewServiceWithClock(store, fixedClock{testNow})
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", "x")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, c.ID, "owner-2"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Get with wrong owner err = %v, want ErrAccessDenied", err)
	}
	if _, err := svc.Get(ctx, "missing", "owner-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get missing err = %v, want ErrNotFound", err)
	}
}

func TestListByOwnerUsesSortedQuery(t *testing.T) {
	store := newMockStore()
	svc := NewServiceWithClock(store, fixedClock{testNow})
	seedConversations(t, store)

	got, err := svc.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}

	assertOrder(t, got, []string{"c2", "c3", "c1"})
	if store.listHits != 0 {
		t.Errorf("fallback query ran %d times, want 0", store.listHits)
	}
}

func TestListByOwnerFallsBackOnMissingIndex(t *testing.T) {
	store := newMockStore()
	store.sortedErr = storage.ErrIndexUnavailable
	svc := NewServiceWithClock(store, fixedClock{testNow})
	seedConversations(t, store)

	got, err := svc.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}

	// The fallback path must produce the same ordering as the indexed query.
	assertOrder(t, got, []string{"c2", "c3", "c1"})
	if store.listHits != 1 {
		t.Errorf("fallback query ran %d times, want 1", store.listHits)
	}
}

func TestListByOwnerOtherErrorsPropagate(t *testing.T) {
	store := newMockStore()
	store.sortedErr = errors.New("db down")
	svc := NewServiceWithClock(store, fixedClock{testNow})

	if _, err := svc.ListByOwner(context.Background(), "owner-1"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if store.listHits != 0 {
		t.Errorf("fallback ran for a non-index error, hits = %d", store.listHits)
	}
}

func seedConversations(t *testing.T, store *mockStore) {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for id, offset := range map[string]time.Duration{
		"c1": 0,
		"c2": 2 * time.Hour,
		"c3": time.Hour,
	} {
		store.convs[id] = storage.Conversation{
			ID: id, OwnerID: "owner-1", Subject: id,
			CreatedAt: base, UpdatedAt: base.Add(offset),
		}
	}
	store.convs["other"] = storage.Conversation{
		ID: "other", OwnerID: "owner-2",
		CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour),
	}
}

func assertOrder(t *testing.T, got []storage.Conversation, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestAppendMessageScopedByOwner(t *testing.T) {
	store := newMockStore()
	svc := NewServiceWithClock(store, fixedClock{testNow})
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", "x")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.AppendMessage(ctx, c.ID, "owner-2", storage.SenderUser, "salut"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("append as wrong owner err = %v, want ErrAccessDenied", err)
	}

	m, err := svc.AppendMessage(ctx, c.ID, "owner-1", storage.SenderUser, "salut")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.ID == "" || m.Sender != storage.SenderUser || m.Content != "salut" {
		t.Errorf("message = %+v", m)
	}
	if got := store.convs[c.ID]; len(got.Messages) != 1 {
		t.Errorf("stored %d messages, want 1", len(got.Messages))
	}
}

func TestRenameAndDeleteScopedByOwner(t *testing.T) {
	store := newMockStore()
	svc := NewServiceWithClock(store, fixedClock{testNow})
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", "vechi")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Rename(ctx, c.ID, "owner-2", "nou"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Rename wrong owner err = %v, want ErrAccessDenied", err)
	}
	if err := svc.Rename(ctx, c.ID, "owner-1", "nou"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if store.convs[c.ID].Subject != "nou" {
		t.Errorf("Subject = %q, want nou", store.convs[c.ID].Subject)
	}

	if err := svc.Delete(ctx, c.ID, "owner-2"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("Delete wrong owner err = %v, want ErrAccessDenied", err)
	}
	if err := svc.Delete(ctx, c.ID, "owner-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.convs[c.ID]; ok {
		t.Error("conversation still present after delete")
	}
}
