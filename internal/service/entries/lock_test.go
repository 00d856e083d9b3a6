package entries

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
	"github.com/mamadbah2/farebook/internal/repository/repotest"
	"github.com/mamadbah2/farebook/internal/service/approval"
)

// pausingStore blocks the first List or Get call until release is closed.
type pausingStore struct {
	*repotest.EntryStore
	pauseOn string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newPausingStore(pauseOn string, seed ...models.Entry) *pausingStore {
	return &pausingStore{
		EntryStore: repotest.NewEntryStore(seed...),
		pauseOn:    pauseOn,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (s *pausingStore) pause(op string) {
	if op != s.pauseOn {
		return
	}
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
}

func (s *pausingStore) List(ctx context.Context) ([]models.Entry, error) {
	s.pause("List")
	return s.EntryStore.List(ctx)
}

func (s *pausingStore) Get(ctx context.Context, id int64) (models.Entry, error) {
	s.pause("Get")
	return s.EntryStore.Get(ctx, id)
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) NotifyForwarded(context.Context, models.Entry, models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func pendingDaily() models.Entry {
	e := daily("2024-03-04", "3500")
	e.EntryID = 7
	e.SubmittedBy = "ram"
	e.EntryStatus = models.StatusPending
	e.Normalize()
	return e
}

func TestEditAndTransitionDoNotInterleave(t *testing.T) {
	store := newPausingStore("List", pendingDaily())
	lock := &sync.Mutex{}
	entrySvc := NewService(store, lock, nil)
	approvalSvc := approval.NewService(store, lock, nil, nil)
	ctx := context.Background()

	editErr := make(chan error, 1)
	go func() {
		edited := daily("2024-03-04", "4000")
		edited.EntryID = 7
		_, err := entrySvc.Edit(ctx, driver, edited)
		editErr <- err
	}()
	<-store.entered

	transErr := make(chan error, 1)
	go func() {
		_, err := approvalSvc.Transition(ctx, manager, 7, models.StatusForwardedCash)
		transErr <- err
	}()

	// Give the transition time to run if it could bypass the edit.
	time.Sleep(50 * time.Millisecond)
	close(store.release)

	if err := <-editErr; err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := <-transErr; err != nil {
		t.Fatalf("Transition: %v", err)
	}

	got, err := store.EntryStore.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EntryStatus != models.StatusForwardedCash || got.ReviewedBy != "hari" {
		t.Fatalf("status change lost: status=%s reviewedBy=%q", got.EntryStatus, got.ReviewedBy)
	}
	if !got.CashAmount.Equal(decimal.RequireFromString("4000")) {
		t.Fatalf("edit lost: cash=%s", got.CashAmount)
	}
}

func TestDeleteAndTransitionDoNotInterleave(t *testing.T) {
	store := newPausingStore("Get", pendingDaily())
	lock := &sync.Mutex{}
	notifier := &countingNotifier{}
	entrySvc := NewService(store, lock, nil)
	approvalSvc := approval.NewService(store, lock, notifier, nil)
	ctx := context.Background()

	deleteErr := make(chan error, 1)
	go func() {
		deleteErr <- entrySvc.Delete(ctx, driver, 7)
	}()
	<-store.entered

	transErr := make(chan error, 1)
	go func() {
		_, err := approvalSvc.Transition(ctx, manager, 7, models.StatusForwardedCash)
		transErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	close(store.release)

	if err := <-deleteErr; err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := <-transErr; !errors.Is(err, repository.ErrEntryNotFound) {
		t.Fatalf("Transition after delete: got %v, want ErrEntryNotFound", err)
	}
	if notifier.calls != 0 {
		t.Fatalf("notified %d times about a deleted entry", notifier.calls)
	}
}
