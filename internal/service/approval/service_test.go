package approval

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
	"github.com/mamadbah2/farebook/internal/repository/repotest"
)

var (
	driver  = models.User{Username: "ram", Role: models.RoleDriver}
	manager = models.User{Username: "hari", Role: models.RoleManager}
	admin   = models.User{Username: "gita", Role: models.RoleAdmin}
)

func entry(id int64, status models.EntryStatus, cash, bank string) models.Entry {
	c := decimal.RequireFromString(cash)
	b := decimal.RequireFromString(bank)
	return models.Entry{
		EntryID:     id,
		Type:        models.EntryDaily,
		Date:        "2024-03-04",
		CashAmount:  c,
		BankAmount:  b,
		TotalAmount: c.Add(b),
		SubmittedBy: "ram",
		EntryStatus: status,
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		actor models.User
		entry models.Entry
		to    models.EntryStatus
		want  error
	}{
		{"manager holds pending", manager, entry(1, models.StatusPending, "10", "0"), models.StatusWaiting, nil},
		{"manager forwards cash", manager, entry(1, models.StatusWaiting, "10", "0"), models.StatusForwardedCash, nil},
		{"manager forwards bank", manager, entry(1, models.StatusPending, "0", "10"), models.StatusForwardedBank, nil},
		{"forward cash without cash", manager, entry(1, models.StatusPending, "0", "10"), models.StatusForwardedCash, ErrIllegalTransition},
		{"forward bank without bank", manager, entry(1, models.StatusPending, "10", "0"), models.StatusForwardedBank, ErrIllegalTransition},
		{"manager cannot approve", manager, entry(1, models.StatusForwardedCash, "10", "0"), models.StatusApproved, ErrForbidden},
		{"admin approves cash", admin, entry(1, models.StatusForwardedCash, "10", "0"), models.StatusApproved, nil},
		{"admin confirms bank", admin, entry(1, models.StatusForwardedBank, "0", "10"), models.StatusApprovedBank, nil},
		{"admin closes bank", admin, entry(1, models.StatusApprovedBank, "0", "10"), models.StatusApproved, nil},
		{"admin approves pending", admin, entry(1, models.StatusPending, "10", "0"), models.StatusApproved, nil},
		{"bank skip", admin, entry(1, models.StatusPending, "0", "10"), models.StatusApprovedBank, ErrIllegalTransition},
		{"approved is final", admin, entry(1, models.StatusApproved, "10", "0"), models.StatusPending, ErrIllegalTransition},
		{"same status", manager, entry(1, models.StatusWaiting, "10", "0"), models.StatusWaiting, ErrIllegalTransition},
		{"send back", manager, entry(1, models.StatusForwardedBank, "0", "10"), models.StatusPending, nil},
		{"driver cannot review", models.User{Username: "shyam", Role: models.RoleDriver}, entry(1, models.StatusPending, "10", "0"), models.StatusWaiting, ErrForbidden},
		{"manager own entry", models.User{Username: "ram", Role: models.RoleManager}, entry(1, models.StatusPending, "10", "0"), models.StatusWaiting, ErrSelfReview},
		{"unknown target", admin, entry(1, models.StatusPending, "10", "0"), models.EntryStatus("paid"), ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.actor, tt.entry, tt.to)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	pending := entry(1, models.StatusPending, "10", "5")

	got := Allowed(manager, pending)
	want := []models.EntryStatus{models.StatusWaiting, models.StatusForwardedCash, models.StatusForwardedBank}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("manager allowed = %v, want %v", got, want)
	}

	got = Allowed(admin, pending)
	want = []models.EntryStatus{models.StatusWaiting, models.StatusForwardedCash, models.StatusForwardedBank, models.StatusApproved}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("admin allowed = %v, want %v", got, want)
	}

	if got := Allowed(driver, pending); len(got) != 0 {
		t.Fatalf("driver allowed = %v", got)
	}
	if got := Allowed(admin, entry(1, models.StatusApproved, "1", "0")); len(got) != 0 {
		t.Fatalf("approved allowed = %v", got)
	}
}

type recordingNotifier struct {
	notified []int64
	err      error
}

func (n *recordingNotifier) NotifyForwarded(_ context.Context, e models.Entry, _ models.User) error {
	n.notified = append(n.notified, e.EntryID)
	return n.err
}

func TestTransitionPersistsAndNotifies(t *testing.T) {
	store := repotest.NewEntryStore(entry(1, models.StatusPending, "100", "0"))
	notifier := &recordingNotifier{err: errors.New("whatsapp down")}
	svc := NewService(store, nil, notifier, nil)
	stamp := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return stamp }
	ctx := context.Background()

	got, err := svc.Transition(ctx, manager, 1, models.StatusWaiting)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.ReviewedBy != "hari" || !got.UpdatedAt.Equal(stamp) {
		t.Fatalf("unexpected stamp %+v", got)
	}
	if len(notifier.notified) != 0 {
		t.Fatal("waiting must not notify")
	}

	// A failing notifier does not fail the transition.
	if _, err := svc.Transition(ctx, manager, 1, models.StatusForwardedCash); err != nil {
		t.Fatalf("Transition forward: %v", err)
	}
	if len(notifier.notified) != 1 {
		t.Fatalf("expected one notification, got %v", notifier.notified)
	}

	stored, _ := store.Get(ctx, 1)
	if stored.EntryStatus != models.StatusForwardedCash {
		t.Fatalf("stored status = %s", stored.EntryStatus)
	}

	if _, err := svc.Transition(ctx, manager, 2, models.StatusWaiting); !errors.Is(err, repository.ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkTransition(t *testing.T) {
	store := repotest.NewEntryStore(
		entry(1, models.StatusForwardedCash, "100", "0"),
		entry(2, models.StatusPending, "100", "0"),
		entry(3, models.StatusApprovedBank, "0", "50"),
	)
	svc := NewService(store, nil, nil, nil)

	results, err := svc.BulkTransition(context.Background(), admin, []int64{1, 42, 3}, models.StatusApproved)
	if !errors.Is(err, repository.ErrEntryNotFound) {
		t.Fatalf("expected first error to be not found, got %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Entry == nil || results[0].Entry.EntryStatus != models.StatusApproved {
		t.Fatalf("entry 1 result %+v", results[0])
	}
	if results[1].Error == "" {
		t.Fatal("entry 42 should carry an error")
	}
	if results[2].Entry == nil || results[2].Entry.EntryStatus != models.StatusApproved {
		t.Fatalf("entry 3 result %+v", results[2])
	}
}
