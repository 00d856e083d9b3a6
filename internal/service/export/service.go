package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/service/reporting"
)

const (
	entriesSheet = "Entries"
	summarySheet = "Summary"
)

// EntryLister returns the entries an actor may see.
type EntryLister interface {
	List(ctx context.Context, actor models.User, filter models.Filter) ([]models.Entry, error)
}

// Service produces XLSX workbooks of entries and their summary.
type Service struct {
	entries EntryLister
	logger  *zap.Logger
}

// NewService wires the export service.
func NewService(entries EntryLister, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{entries: entries, logger: logger}
}

// EntriesXLSX returns a workbook with one row per visible entry on the
// Entries sheet and one row per user, plus a total row, on the Summary sheet.
func (s *Service) EntriesXLSX(ctx context.Context, actor models.User, filter models.Filter) ([]byte, error) {
	start := time.Now()

	entries, err := s.entries.List(ctx, actor, filter)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Debug("close workbook", zap.Error(cerr))
		}
	}()

	// A new workbook carries a default sheet; rename it instead of adding one.
	if err := f.SetSheetName(f.GetSheetName(0), entriesSheet); err != nil {
		return nil, fmt.Errorf("name entries sheet: %w", err)
	}
	if err := writeEntries(f, entries); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	users := reporting.Summarize(entries)
	if err := writeSummary(f, users, reporting.Totals(users)); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("entries exported",
		zap.String("actor", actor.Username),
		zap.Int("rows", len(entries)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return buf.Bytes(), nil
}

var entryHeaders = []interface{}{
	"Entry ID", "Type", "Date", "End Date", "Vehicle", "Route", "Description",
	"Cash", "Bank", "Total", "Submitted By", "Status", "Reviewed By",
}

func writeEntries(f *excelize.File, entries []models.Entry) error {
	if err := f.SetSheetRow(entriesSheet, "A1", &entryHeaders); err != nil {
		return fmt.Errorf("write entry headers: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.EntryID,
			string(e.Type),
			e.Date,
			e.EndDate,
			e.Vehicle,
			e.Route,
			e.Description,
			e.CashAmount.InexactFloat64(),
			e.BankAmount.InexactFloat64(),
			e.TotalAmount.InexactFloat64(),
			e.SubmittedBy,
			string(e.EntryStatus),
			e.ReviewedBy,
		}
		if err := f.SetSheetRow(entriesSheet, cell, &row); err != nil {
			return fmt.Errorf("write entry %d: %w", e.EntryID, err)
		}
	}

	_ = f.SetColWidth(entriesSheet, "A", "A", 16)
	_ = f.SetColWidth(entriesSheet, "C", "D", 12)
	_ = f.SetColWidth(entriesSheet, "F", "G", 28)
	_ = f.SetColWidth(entriesSheet, "H", "J", 14)
	_ = f.SetPanes(entriesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}

var summaryHeaders = []interface{}{
	"User", "Income Cash", "Income Bank", "Expense Cash", "Expense Bank",
	"Net Cash", "Net Bank", "Cash In Hand", "Forwarded Cash", "Forwarded Bank",
	"Approved", "Off Days", "Entries",
}

func writeSummary(f *excelize.File, users []models.UserSummary, total models.UserSummary) error {
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeaders); err != nil {
		return fmt.Errorf("write summary headers: %w", err)
	}

	total.Username = "Total"
	rows := append(append([]models.UserSummary(nil), users...), total)
	for i, u := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			u.Username,
			u.IncomeCash.InexactFloat64(),
			u.IncomeBank.InexactFloat64(),
			u.ExpenseCash.InexactFloat64(),
			u.ExpenseBank.InexactFloat64(),
			u.NetCash.InexactFloat64(),
			u.NetBank.InexactFloat64(),
			u.CashInHand.InexactFloat64(),
			u.ForwardedCash.InexactFloat64(),
			u.ForwardedBank.InexactFloat64(),
			u.Approved.InexactFloat64(),
			u.OffDays,
			u.Entries,
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary for %s: %w", u.Username, err)
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "K", 15)
	return nil
}
