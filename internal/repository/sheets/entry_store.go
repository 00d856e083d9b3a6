package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

const (
	entriesSheet     = "Entries"
	entriesDataRange = "Entries!A:O"
	entriesLastCol   = "O"
	entryColumns     = 15
	entryHeaderCell  = "entryId"
)

// EntryHeader is the expected first row of the Entries sheet.
var EntryHeader = []interface{}{
	"entryId", "type", "date", "endDate", "vehicle", "route", "description",
	"cashAmount", "bankAmount", "totalAmount", "submittedBy", "entryStatus",
	"reviewedBy", "createdAt", "updatedAt",
}

// EntryStore keeps one entry per row of the Entries sheet.
type EntryStore struct {
	repo   Repository
	logger *zap.Logger

	// Row numbers shift on delete, so locate-then-write runs under the lock.
	mu sync.Mutex
}

var _ repository.EntryStore = (*EntryStore)(nil)

// NewEntryStore wires an entry store over a raw sheet repository.
func NewEntryStore(repo Repository, logger *zap.Logger) *EntryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryStore{repo: repo, logger: logger}
}

// Add appends the entry as a new row.
func (s *EntryStore) Add(ctx context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.WriteRow(ctx, entriesDataRange, EntryToRow(entry)); err != nil {
		return fmt.Errorf("save entry %d: %w", entry.EntryID, err)
	}
	return nil
}

// List returns every decodable entry in sheet order.
func (s *EntryStore) List(ctx context.Context) ([]models.Entry, error) {
	rows, err := s.repo.ReadRange(ctx, entriesDataRange)
	if err != nil {
		return nil, fmt.Errorf("load entries range: %w", err)
	}

	entries := make([]models.Entry, 0, len(rows))
	for i, row := range rows {
		if isHeader(row) {
			continue
		}
		entry, err := RowToEntry(row)
		if err != nil {
			s.logger.Debug("skip entry row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Get returns the entry with the given id.
func (s *EntryStore) Get(ctx context.Context, id int64) (models.Entry, error) {
	_, entry, err := s.locate(ctx, id)
	return entry, err
}

// Update overwrites the row holding entry.EntryID.
func (s *EntryStore) Update(ctx context.Context, entry models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rowNumber, _, err := s.locate(ctx, entry.EntryID)
	if err != nil {
		return err
	}

	sheetRange := fmt.Sprintf("%s!A%d:%s%d", entriesSheet, rowNumber, entriesLastCol, rowNumber)
	if err := s.repo.UpdateRow(ctx, sheetRange, EntryToRow(entry)); err != nil {
		return fmt.Errorf("update entry %d: %w", entry.EntryID, err)
	}
	return nil
}

// Delete removes the row holding the entry.
func (s *EntryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rowNumber, _, err := s.locate(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteRow(ctx, entriesSheet, rowNumber); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

// locate returns the 1-based sheet row number holding the entry.
func (s *EntryStore) locate(ctx context.Context, id int64) (int, models.Entry, error) {
	rows, err := s.repo.ReadRange(ctx, entriesDataRange)
	if err != nil {
		return 0, models.Entry{}, fmt.Errorf("load entries range: %w", err)
	}

	for i, row := range rows {
		if len(row) == 0 || isHeader(row) {
			continue
		}
		rowID, err := parseInt64(row[0])
		if err != nil || rowID != id {
			continue
		}
		entry, err := RowToEntry(row)
		if err != nil {
			return 0, models.Entry{}, fmt.Errorf("decode entry %d: %w", id, err)
		}
		return i + 1, entry, nil
	}

	return 0, models.Entry{}, fmt.Errorf("entry %d: %w", id, repository.ErrEntryNotFound)
}

// EntryToRow flattens an entry into the column order of EntryHeader.
func EntryToRow(e models.Entry) []interface{} {
	return []interface{}{
		strconv.FormatInt(e.EntryID, 10),
		string(e.Type),
		e.Date,
		e.EndDate,
		e.Vehicle,
		e.Route,
		e.Description,
		e.CashAmount.String(),
		e.BankAmount.String(),
		e.TotalAmount.String(),
		e.SubmittedBy,
		string(e.EntryStatus),
		e.ReviewedBy,
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	}
}

// RowToEntry decodes a sheet row. Trailing empty cells may be missing.
func RowToEntry(row []interface{}) (models.Entry, error) {
	if len(row) < 3 {
		return models.Entry{}, fmt.Errorf("row has %d cells, want at least 3", len(row))
	}

	cell := func(i int) string {
		if i >= len(row) || i >= entryColumns {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}

	var (
		e   models.Entry
		err error
	)

	if e.EntryID, err = parseInt64(row[0]); err != nil {
		return models.Entry{}, fmt.Errorf("entryId: %w", err)
	}
	if e.Type, err = models.ParseEntryType(cell(1)); err != nil {
		return models.Entry{}, err
	}
	e.Date = cell(2)
	e.EndDate = cell(3)
	e.Vehicle = cell(4)
	e.Route = cell(5)
	e.Description = cell(6)
	if e.CashAmount, err = parseDecimal(cell(7)); err != nil {
		return models.Entry{}, fmt.Errorf("cashAmount: %w", err)
	}
	if e.BankAmount, err = parseDecimal(cell(8)); err != nil {
		return models.Entry{}, fmt.Errorf("bankAmount: %w", err)
	}
	if e.TotalAmount, err = parseDecimal(cell(9)); err != nil {
		return models.Entry{}, fmt.Errorf("totalAmount: %w", err)
	}
	e.SubmittedBy = cell(10)
	if status := cell(11); status != "" {
		if e.EntryStatus, err = models.ParseEntryStatus(status); err != nil {
			return models.Entry{}, err
		}
	} else {
		e.EntryStatus = models.StatusPending
	}
	e.ReviewedBy = cell(12)
	if e.CreatedAt, err = parseTime(cell(13)); err != nil {
		return models.Entry{}, fmt.Errorf("createdAt: %w", err)
	}
	if e.UpdatedAt, err = parseTime(cell(14)); err != nil {
		return models.Entry{}, fmt.Errorf("updatedAt: %w", err)
	}

	return e, nil
}

func isHeader(row []interface{}) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), entryHeaderCell)
}

func parseInt64(value interface{}) (int64, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseInt(str, 10, 64)
}

func parseDecimal(str string) (decimal.Decimal, error) {
	if str == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(str, ",", ""))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(str string) (time.Time, error) {
	if str == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, str)
}
