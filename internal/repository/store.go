package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/farebook/internal/domain/models"
)

var (
	// ErrEntryNotFound is returned when no stored entry carries the requested id.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrUserNotFound is returned when no user row matches the username.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when adding a username that is already taken.
	ErrUserExists = errors.New("user already exists")
)

// EntryStore persists entries. Implementations back onto the spreadsheet,
// either through the Sheets API or through the Apps Script endpoint.
type EntryStore interface {
	Add(ctx context.Context, entry models.Entry) error
	List(ctx context.Context) ([]models.Entry, error)
	Get(ctx context.Context, id int64) (models.Entry, error)
	Update(ctx context.Context, entry models.Entry) error
	Delete(ctx context.Context, id int64) error
}

// UserStore persists accounts.
type UserStore interface {
	FindUser(ctx context.Context, username string) (models.User, error)
	AddUser(ctx context.Context, user models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// SnapshotArchive stores point-in-time summaries.
type SnapshotArchive interface {
	SaveSummarySnapshot(ctx context.Context, snapshot models.SummarySnapshot) error
}
