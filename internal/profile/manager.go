package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inima-app/inima/internal/storage"
)

// Store defines the profile-document operations the Manager needs.
// Implemented by storage.Store.
type Store interface {
	GetProfileDoc(ctx context.Context, ownerID, kind string) (storage.ProfileDoc, error)
	PutProfileDoc(ctx context.Context, ownerID, kind, doc string, now time.Time) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides typed access to the two per-owner profile documents.
// Writes go through read-modify-write at the field level, so a partial update
// never clobbers unrelated fields.
type Manager struct {
	store Store
	clock Clock
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, clock: realClock{}}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock) *Manager {
	return &Manager{store: store, clock: clock}
}

// GetPersonality loads the owner's personality profile. found is false when
// the owner has no profile yet.
func (m *Manager) GetPersonality(ctx context.Context, ownerID string) (p PersonalityProfile, found bool, err error) {
	doc, err := m.store.GetProfileDoc(ctx, ownerID, storage.ProfileKindPersonality)
	if errors.Is(err, storage.ErrNotFound) {
		return PersonalityProfile{}, false, nil
	}
	if err != nil {
		return PersonalityProfile{}, false, fmt.Errorf("loading personality profile: %w", err)
	}
	if err := json.Unmarshal([]byte(doc.Doc), &p); err != nil {
		return PersonalityProfile{}, false, fmt.Errorf("unmarshalling personality profile: %w", err)
	}
	return p, true, nil
}

// SavePersonality upserts the owner's personality profile document.
func (m *Manager) SavePersonality(ctx context.Context, ownerID string, p PersonalityProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshalling personality profile: %w", err)
	}
	if err := m.store.PutProfileDoc(ctx, ownerID, storage.ProfileKindPersonality, string(b), m.clock.Now()); err != nil {
		return fmt.Errorf("saving personality profile: %w", err)
	}
	return nil
}

// MergePersonality loads the owner's profile (bootstrapping a default one on
// first contact), applies patch to it, and writes it back. The returned value
// is the post-patch profile.
func (m *Manager) MergePersonality(ctx context.Context, ownerID string, patch func(*PersonalityProfile)) (PersonalityProfile, error) {
	p, found, err := m.GetPersonality(ctx, ownerID)
	if err != nil {
		return PersonalityProfile{}, err
	}
	if !found {
		p = DefaultPersonality(m.clock.Now())
	}
	patch(&p)
	p.UpdatedAt = m.clock.Now()
	if err := m.SavePersonality(ctx, ownerID, p); err != nil {
		return PersonalityProfile{}, err
	}
	return p, nil
}

// GetDynamic loads the owner's dynamic profile.
func (m *Manager) GetDynamic(ctx context.Context, ownerID string) (p DynamicProfile, found bool, err error) {
	doc, err := m.store.GetProfileDoc(ctx, ownerID, storage.ProfileKindDynamic)
	if errors.Is(err, storage.ErrNotFound) {
		return DynamicProfile{}, false, nil
	}
	if err != nil {
		return DynamicProfile{}, false, fmt.Errorf("loading dynamic profile: %w", err)
	}
	if err := json.Unmarshal([]byte(doc.Doc), &p); err != nil {
		return DynamicProfile{}, false, fmt.Errorf("unmarshalling dynamic profile: %w", err)
	}
	return p, true, nil
}

// SaveDynamic upserts the owner's dynamic profile document.
func (m *Manager) SaveDynamic(ctx context.Context, ownerID string, p DynamicProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshalling dynamic profile: %w", err)
	}
	if err := m.store.PutProfileDoc(ctx, ownerID, storage.ProfileKindDynamic, string(b), m.clock.Now()); err != nil {
		return fmt.Errorf("saving dynamic profile: %w", err)
	}
	return nil
}

// DynamicStale reports whether the owner's dynamic profile is missing or
// older than maxAge. Errors count as stale so the refresh path gets a chance
// to repair a bad document.
func (m *Manager) DynamicStale(ctx context.Context, ownerID string, maxAge time.Duration) bool {
	p, found, err := m.GetDynamic(ctx, ownerID)
	if err != nil || !found {
		return true
	}
	return m.clock.Now().Sub(p.LastAnalyzed) > maxAge
}
