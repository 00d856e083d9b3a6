package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

var (
	// ErrIllegalTransition indicates the workflow has no edge between the two statuses.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrForbidden indicates the actor's role may not take this edge.
	ErrForbidden = errors.New("role may not perform this transition")
	// ErrSelfReview indicates a non-admin tried to move their own entry.
	ErrSelfReview = errors.New("cannot review own entry")
)

type rule struct {
	from  []models.EntryStatus
	to    models.EntryStatus
	roles []models.Role
}

var reviewers = []models.Role{models.RoleManager, models.RoleAdmin}
var adminOnly = []models.Role{models.RoleAdmin}

// workflow is the complete set of permitted status edges.
var workflow = []rule{
	{from: []models.EntryStatus{models.StatusPending}, to: models.StatusWaiting, roles: reviewers},
	{from: []models.EntryStatus{models.StatusPending, models.StatusWaiting}, to: models.StatusForwardedCash, roles: reviewers},
	{from: []models.EntryStatus{models.StatusPending, models.StatusWaiting}, to: models.StatusForwardedBank, roles: reviewers},
	{from: []models.EntryStatus{models.StatusForwardedBank}, to: models.StatusApprovedBank, roles: adminOnly},
	{from: []models.EntryStatus{models.StatusForwardedCash, models.StatusApprovedBank}, to: models.StatusApproved, roles: adminOnly},
	{from: []models.EntryStatus{models.StatusPending, models.StatusWaiting}, to: models.StatusApproved, roles: adminOnly},
	{from: []models.EntryStatus{models.StatusWaiting, models.StatusForwardedCash, models.StatusForwardedBank}, to: models.StatusPending, roles: reviewers},
}

// Notifier is told about entries handed over to the admin.
type Notifier interface {
	NotifyForwarded(ctx context.Context, entry models.Entry, actor models.User) error
}

// Result reports the outcome of one entry in a bulk transition.
type Result struct {
	EntryID int64         `json:"entryId"`
	Entry   *models.Entry `json:"entry,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Service moves entries through the approval workflow.
type Service struct {
	store    repository.EntryStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.Locker
}

// NewService wires the approval service. lock must be the one handed to the
// entry service for the same store; nil gives a private lock. notifier may be
// nil.
func NewService(store repository.EntryStore, lock sync.Locker, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		mu:       lock,
	}
}

// Check reports why actor may not move entry to the target status, or nil.
func Check(actor models.User, entry models.Entry, to models.EntryStatus) error {
	from := entry.EntryStatus
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	if from.Final() {
		return fmt.Errorf("%w: %s is final", ErrIllegalTransition, from)
	}
	if from == to {
		return fmt.Errorf("%w: already %s", ErrIllegalTransition, to)
	}

	r, ok := findRule(from, to)
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	if !hasRole(r.roles, actor.Role) {
		return fmt.Errorf("%w: %s cannot move %s -> %s", ErrForbidden, actor.Role, from, to)
	}
	if !actor.IsAdmin() && strings.EqualFold(actor.Username, entry.SubmittedBy) {
		return ErrSelfReview
	}

	switch to {
	case models.StatusForwardedCash:
		if !entry.CashAmount.IsPositive() {
			return fmt.Errorf("%w: entry has no cash amount", ErrIllegalTransition)
		}
	case models.StatusForwardedBank:
		if !entry.BankAmount.IsPositive() {
			return fmt.Errorf("%w: entry has no bank amount", ErrIllegalTransition)
		}
	}
	return nil
}

// Allowed lists the statuses actor may move entry to, in workflow order.
func Allowed(actor models.User, entry models.Entry) []models.EntryStatus {
	out := make([]models.EntryStatus, 0, 3)
	for _, to := range models.EntryStatuses {
		if Check(actor, entry, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// Transition moves one entry to the target status and persists it.
func (s *Service) Transition(ctx context.Context, actor models.User, id int64, to models.EntryStatus) (models.Entry, error) {
	s.mu.Lock()
	entry, err := s.transitionLocked(ctx, actor, id, to)
	s.mu.Unlock()
	if err != nil {
		return models.Entry{}, err
	}

	s.notify(ctx, entry, actor)
	return entry, nil
}

// BulkTransition applies the same target status to many entries. Each entry
// is handled independently; the first failure is returned alongside the
// per-entry results.
func (s *Service) BulkTransition(ctx context.Context, actor models.User, ids []int64, to models.EntryStatus) ([]Result, error) {
	results := make([]Result, 0, len(ids))
	var firstErr error

	for _, id := range ids {
		entry, err := s.Transition(ctx, actor, id, to)
		if err != nil {
			s.logger.Warn("bulk transition skipped entry", zap.Int64("entry_id", id), zap.Error(err))
			results = append(results, Result{EntryID: id, Error: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e := entry
		results = append(results, Result{EntryID: id, Entry: &e})
	}

	return results, firstErr
}

func (s *Service) transitionLocked(ctx context.Context, actor models.User, id int64, to models.EntryStatus) (models.Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Entry{}, err
	}

	if err := Check(actor, entry, to); err != nil {
		return models.Entry{}, err
	}

	from := entry.EntryStatus
	entry.EntryStatus = to
	entry.ReviewedBy = actor.Username
	entry.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, entry); err != nil {
		return models.Entry{}, fmt.Errorf("persist status of entry %d: %w", id, err)
	}

	s.logger.Info("entry status changed",
		zap.Int64("entry_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor.Username))
	return entry, nil
}

func (s *Service) notify(ctx context.Context, entry models.Entry, actor models.User) {
	if s.notifier == nil {
		return
	}
	if entry.EntryStatus != models.StatusForwardedCash && entry.EntryStatus != models.StatusForwardedBank {
		return
	}
	if err := s.notifier.NotifyForwarded(ctx, entry, actor); err != nil {
		s.logger.Warn("forward notification failed", zap.Int64("entry_id", entry.EntryID), zap.Error(err))
	}
}

func findRule(from, to models.EntryStatus) (rule, bool) {
	for _, r := range workflow {
		if r.to != to {
			continue
		}
		for _, f := range r.from {
			if f == from {
				return r, true
			}
		}
	}
	return rule{}, false
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
