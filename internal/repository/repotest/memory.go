// Package repotest provides in-memory store implementations for tests.
package repotest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

// EntryStore is a goroutine-safe in-memory repository.EntryStore.
type EntryStore struct {
	mu      sync.Mutex
	entries []models.Entry

	// Err, when set, is returned by every call.
	Err error
}

var _ repository.EntryStore = (*EntryStore)(nil)

// NewEntryStore seeds a store with entries.
func NewEntryStore(seed ...models.Entry) *EntryStore {
	return &EntryStore{entries: append([]models.Entry(nil), seed...)}
}

func (s *EntryStore) Add(_ context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *EntryStore) List(_ context.Context) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]models.Entry(nil), s.entries...), nil
}

func (s *EntryStore) Get(_ context.Context, id int64) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Entry{}, s.Err
	}
	for _, e := range s.entries {
		if e.EntryID == id {
			return e, nil
		}
	}
	return models.Entry{}, fmt.Errorf("entry %d: %w", id, repository.ErrEntryNotFound)
}

func (s *EntryStore) Update(_ context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i := range s.entries {
		if s.entries[i].EntryID == entry.EntryID {
			s.entries[i] = entry
			return nil
		}
	}
	return fmt.Errorf("entry %d: %w", entry.EntryID, repository.ErrEntryNotFound)
}

func (s *EntryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for i := range s.entries {
		if s.entries[i].EntryID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %d: %w", id, repository.ErrEntryNotFound)
}

// UserStore is an in-memory repository.UserStore.
type UserStore struct {
	mu    sync.Mutex
	users []models.User
}

var _ repository.UserStore = (*UserStore)(nil)

// NewUserStore seeds a store with users.
func NewUserStore(seed ...models.User) *UserStore {
	return &UserStore{users: append([]models.User(nil), seed...)}
}

func (s *UserStore) FindUser(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", username, repository.ErrUserNotFound)
}

func (s *UserStore) AddUser(ctx context.Context, user models.User) error {
	if _, err := s.FindUser(ctx, user.Username); err == nil {
		return fmt.Errorf("user %q: %w", user.Username, repository.ErrUserExists)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
	return nil
}

func (s *UserStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...), nil
}

// SnapshotArchive records saved snapshots.
type SnapshotArchive struct {
	mu        sync.Mutex
	Snapshots []models.SummarySnapshot
}

func (a *SnapshotArchive) SaveSummarySnapshot(_ context.Context, snapshot models.SummarySnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Snapshots = append(a.Snapshots, snapshot)
	return nil
}
