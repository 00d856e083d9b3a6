package entries

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

var (
	// ErrForbidden indicates the actor may not touch the entry.
	ErrForbidden = errors.New("not allowed to modify this entry")
	// ErrLocked indicates the entry has moved past the state that allows the change.
	ErrLocked = errors.New("entry is locked by its status")
	// ErrDateOverlap indicates a calendar entry collides with an existing one.
	ErrDateOverlap = errors.New("date overlaps an existing entry")
)

// OverlapError names the entry a submission collides with.
type OverlapError struct {
	Conflict models.Entry
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %s entry %d covers %s..%s", ErrDateOverlap, e.Conflict.Type, e.Conflict.EntryID, e.Conflict.Date, e.Conflict.EndDate)
}

func (e *OverlapError) Unwrap() error {
	return ErrDateOverlap
}

// Service handles entry submission, editing and removal.
type Service struct {
	store  repository.EntryStore
	logger *zap.Logger
	now    func() time.Time

	// The sheet has no transactions: check-then-write runs under this lock.
	// It must be the same lock the approval service holds.
	mu sync.Locker
}

// NewService wires the entry service. lock serialises every read-check-write
// on store and is shared with the approval service; nil gives the service a
// private lock.
func NewService(store repository.EntryStore, lock sync.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		mu:     lock,
	}
}

// Submit validates and stores a new entry on behalf of actor.
func (s *Service) Submit(ctx context.Context, actor models.User, entry models.Entry) (models.Entry, error) {
	entry.Normalize()

	if !actor.IsAdmin() || entry.SubmittedBy == "" {
		entry.SubmittedBy = actor.Username
	}

	entry.EntryStatus = models.StatusPending
	entry.ReviewedBy = ""
	if actor.IsAdmin() {
		entry.EntryStatus = models.StatusApproved
		entry.ReviewedBy = actor.Username
	}

	if err := entry.Validate(); err != nil {
		return models.Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.List(ctx)
	if err != nil {
		return models.Entry{}, fmt.Errorf("load entries: %w", err)
	}

	// A client-chosen id may collide with a stored one; compare against all rows.
	candidate := entry
	candidate.EntryID = 0
	if conflict, ok := findOverlap(existing, candidate); ok {
		s.logger.Warn("entry overlaps existing entry",
			zap.String("submitted_by", entry.SubmittedBy),
			zap.String("date", entry.Date),
			zap.Int64("conflict_id", conflict.EntryID))
		return models.Entry{}, &OverlapError{Conflict: conflict}
	}

	now := s.now().UTC()
	entry.EntryID = uniqueID(existing, entry.EntryID, now)
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := s.store.Add(ctx, entry); err != nil {
		return models.Entry{}, err
	}

	s.logger.Info("entry submitted",
		zap.Int64("entry_id", entry.EntryID),
		zap.String("type", string(entry.Type)),
		zap.String("submitted_by", entry.SubmittedBy),
		zap.String("actor", actor.Username),
		zap.String("total", entry.TotalAmount.String()),
		zap.String("status", string(entry.EntryStatus)))

	return entry, nil
}

// Edit replaces the editable fields of a pending entry.
func (s *Service) Edit(ctx context.Context, actor models.User, entry models.Entry) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Get(ctx, entry.EntryID)
	if err != nil {
		return models.Entry{}, err
	}
	if !actor.IsAdmin() && !sameUser(actor.Username, current.SubmittedBy) {
		return models.Entry{}, ErrForbidden
	}
	if !editable(actor, current) {
		return models.Entry{}, fmt.Errorf("%w: %s", ErrLocked, current.EntryStatus)
	}

	entry.Normalize()
	entry.SubmittedBy = current.SubmittedBy
	entry.EntryStatus = current.EntryStatus
	entry.ReviewedBy = current.ReviewedBy
	entry.CreatedAt = current.CreatedAt

	if err := entry.Validate(); err != nil {
		return models.Entry{}, err
	}

	existing, err := s.store.List(ctx)
	if err != nil {
		return models.Entry{}, fmt.Errorf("load entries: %w", err)
	}
	if conflict, ok := findOverlap(existing, entry); ok {
		return models.Entry{}, &OverlapError{Conflict: conflict}
	}

	entry.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, entry); err != nil {
		return models.Entry{}, err
	}

	s.logger.Info("entry edited",
		zap.Int64("entry_id", entry.EntryID),
		zap.String("actor", actor.Username))
	return entry, nil
}

// Delete removes an entry. Submitters may delete their own pending entries;
// admins may delete anything not yet approved.
func (s *Service) Delete(ctx context.Context, actor models.User, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case actor.IsAdmin():
		if current.EntryStatus.Final() && !sameUser(actor.Username, current.SubmittedBy) {
			return fmt.Errorf("%w: %s", ErrLocked, current.EntryStatus)
		}
	case sameUser(actor.Username, current.SubmittedBy):
		if current.EntryStatus != models.StatusPending {
			return fmt.Errorf("%w: %s", ErrLocked, current.EntryStatus)
		}
	default:
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("entry deleted",
		zap.Int64("entry_id", id),
		zap.String("submitted_by", current.SubmittedBy),
		zap.String("actor", actor.Username))
	return nil
}

// Get returns one entry if the actor may see it.
func (s *Service) Get(ctx context.Context, actor models.User, id int64) (models.Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Entry{}, err
	}
	if !actor.Role.CanReview() && !sameUser(actor.Username, entry.SubmittedBy) {
		return models.Entry{}, ErrForbidden
	}
	return entry, nil
}

// List returns the entries visible to actor that match filter, newest first.
// Drivers only ever see their own entries.
func (s *Service) List(ctx context.Context, actor models.User, filter models.Filter) ([]models.Entry, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	if !actor.Role.CanReview() {
		filter.SubmittedBy = actor.Username
	}

	out := filter.Apply(all)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].EntryID > out[j].EntryID
	})
	return out, nil
}

// editable reports whether the entry content may still change. Admin
// submissions start approved, so admins keep the right to fix their own.
func editable(actor models.User, current models.Entry) bool {
	if current.EntryStatus == models.StatusPending {
		return true
	}
	return actor.IsAdmin() && sameUser(actor.Username, current.SubmittedBy)
}

// findOverlap returns the first calendar entry of the same submitter that
// shares a day with candidate, ignoring candidate itself.
func findOverlap(existing []models.Entry, candidate models.Entry) (models.Entry, bool) {
	if !candidate.Type.IsCalendar() {
		return models.Entry{}, false
	}
	for _, e := range existing {
		if e.EntryID == candidate.EntryID && candidate.EntryID != 0 {
			continue
		}
		if !e.Type.IsCalendar() || !sameUser(e.SubmittedBy, candidate.SubmittedBy) {
			continue
		}
		if e.Overlaps(candidate) {
			return e, true
		}
	}
	return models.Entry{}, false
}

// uniqueID keeps the requested id when free, otherwise derives one from the
// clock and bumps it by a millisecond until unused.
func uniqueID(existing []models.Entry, requested int64, now time.Time) int64 {
	taken := make(map[int64]struct{}, len(existing))
	for _, e := range existing {
		taken[e.EntryID] = struct{}{}
	}

	id := requested
	if id <= 0 {
		id = now.UnixMilli()
	}
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		id++
	}
}

func sameUser(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
