package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
)

// maxBreakdownDays caps the range of a per-day breakdown.
const maxBreakdownDays = 366

// Service aggregates entries into cash and bank summaries.
type Service struct {
	store   repository.EntryStore
	archive repository.SnapshotArchive
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new reporting service instance. archive may be nil, in
// which case snapshots are built but not stored. loc decides where a week starts.
func NewService(store repository.EntryStore, archive repository.SnapshotArchive, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:   store,
		archive: archive,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Summary aggregates the entries visible to actor that match filter.
func (s *Service) Summary(ctx context.Context, actor models.User, filter models.Filter) (models.SummarySnapshot, error) {
	entries, err := s.visible(ctx, actor, filter)
	if err != nil {
		return models.SummarySnapshot{}, err
	}

	users := Summarize(entries)
	return models.SummarySnapshot{
		From:        filter.From,
		To:          filter.To,
		GeneratedAt: s.now().UTC(),
		Users:       users,
		Totals:      Totals(users),
	}, nil
}

// Daily returns the per-day income and expense of the visible entries. A
// missing range defaults to the current week up to today.
func (s *Service) Daily(ctx context.Context, actor models.User, filter models.Filter) ([]models.DailyTotal, error) {
	today := calendarDay(s.now().In(s.loc))
	if filter.To.IsZero() {
		filter.To = today
	}
	if filter.From.IsZero() {
		filter.From = mondayStart(filter.To)
	}
	if filter.To.Before(filter.From) {
		return nil, models.NewValidationError("to", filter.To.Format(models.DateLayout), "must not be before from")
	}
	if days := int(filter.To.Sub(filter.From).Hours()/24) + 1; days > maxBreakdownDays {
		return nil, models.NewValidationError("to", filter.To.Format(models.DateLayout), fmt.Sprintf("range exceeds %d days", maxBreakdownDays))
	}

	entries, err := s.visible(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return DailyBreakdown(entries, filter.From, filter.To), nil
}

// Snapshot builds the summary of every entry in [from, to] and archives it
// when an archive is configured.
func (s *Service) Snapshot(ctx context.Context, from, to time.Time) (models.SummarySnapshot, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return models.SummarySnapshot{}, fmt.Errorf("load entries: %w", err)
	}
	return s.snapshot(ctx, all, from, to)
}

func (s *Service) snapshot(ctx context.Context, all []models.Entry, from, to time.Time) (models.SummarySnapshot, error) {
	filter := models.Filter{From: from, To: to}
	users := Summarize(filter.Apply(all))
	snapshot := models.SummarySnapshot{
		From:        from,
		To:          to,
		GeneratedAt: s.now().UTC(),
		Users:       users,
		Totals:      Totals(users),
	}

	if s.archive == nil {
		return snapshot, nil
	}
	if err := s.archive.SaveSummarySnapshot(ctx, snapshot); err != nil {
		return snapshot, fmt.Errorf("archive summary snapshot: %w", err)
	}
	s.logger.Info("summary snapshot archived",
		zap.String("from", from.Format(models.DateLayout)),
		zap.String("to", to.Format(models.DateLayout)),
		zap.Int("users", len(users)))
	return snapshot, nil
}

// AwaitingReview counts pending and waiting entries of any date.
func AwaitingReview(entries []models.Entry) int {
	n := 0
	for _, e := range entries {
		if e.EntryStatus.Open() {
			n++
		}
	}
	return n
}

// WeeklyReport summarises the Monday-start week containing now as text, and
// counts entries from any week that are still awaiting review. The snapshot
// is archived on the way; an archive failure is logged and the text is still
// returned.
func (s *Service) WeeklyReport(ctx context.Context, now time.Time) (string, error) {
	start := mondayStart(calendarDay(now.In(s.loc)))
	end := start.AddDate(0, 0, 6)

	all, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("load entries: %w", err)
	}

	snapshot, err := s.snapshot(ctx, all, start, end)
	if err != nil {
		s.logger.Error("weekly snapshot not archived", zap.Error(err))
	}
	return FormatReport(snapshot, AwaitingReview(all)), nil
}

func (s *Service) visible(ctx context.Context, actor models.User, filter models.Filter) ([]models.Entry, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	if !actor.Role.CanReview() {
		filter.SubmittedBy = actor.Username
	}
	return filter.Apply(all), nil
}

// Summarize groups entries by submitter, sorted by username. Usernames are
// grouped case-insensitively and keep the first spelling seen.
func Summarize(entries []models.Entry) []models.UserSummary {
	byUser := make(map[string]*models.UserSummary)
	var keys []string

	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.SubmittedBy))
		sum, ok := byUser[key]
		if !ok {
			fresh := models.NewUserSummary(strings.TrimSpace(e.SubmittedBy))
			sum = &fresh
			byUser[key] = sum
			keys = append(keys, key)
		}
		add(sum, e)
	}

	sort.Strings(keys)
	out := make([]models.UserSummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byUser[k])
	}
	return out
}

// Totals folds per-user summaries into the grand-total row.
func Totals(summaries []models.UserSummary) models.UserSummary {
	total := models.NewUserSummary(models.TotalsKey)
	for _, u := range summaries {
		total.IncomeCash = total.IncomeCash.Add(u.IncomeCash)
		total.IncomeBank = total.IncomeBank.Add(u.IncomeBank)
		total.ExpenseCash = total.ExpenseCash.Add(u.ExpenseCash)
		total.ExpenseBank = total.ExpenseBank.Add(u.ExpenseBank)
		total.NetCash = total.NetCash.Add(u.NetCash)
		total.NetBank = total.NetBank.Add(u.NetBank)
		total.CashInHand = total.CashInHand.Add(u.CashInHand)
		total.ForwardedCash = total.ForwardedCash.Add(u.ForwardedCash)
		total.ForwardedBank = total.ForwardedBank.Add(u.ForwardedBank)
		total.Approved = total.Approved.Add(u.Approved)
		total.OffDays += u.OffDays
		total.Entries += u.Entries
		for status, n := range u.ByStatus {
			total.ByStatus[status] += n
		}
		for t, amount := range u.ByType {
			total.ByType[t] = total.ByType[t].Add(amount)
		}
	}
	return total
}

// DailyBreakdown returns one row per day in [from, to], zero rows included.
// Multi-day entries count on their start day.
func DailyBreakdown(entries []models.Entry, from, to time.Time) []models.DailyTotal {
	from, to = calendarDay(from), calendarDay(to)
	if to.Before(from) {
		return nil
	}

	index := make(map[string]int)
	var out []models.DailyTotal
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(models.DateLayout)
		index[key] = len(out)
		out = append(out, models.DailyTotal{Date: key})
	}

	for _, e := range entries {
		i, ok := index[e.Date]
		if !ok {
			continue
		}
		row := &out[i]
		switch {
		case e.Type.IsIncome():
			row.Income = row.Income.Add(e.TotalAmount)
		case e.Type.IsExpense():
			row.Expense = row.Expense.Add(e.TotalAmount)
		}
	}

	for i := range out {
		out[i].Net = out[i].Income.Sub(out[i].Expense)
	}
	return out
}

// FormatReport renders a snapshot as a short message suitable for WhatsApp.
// pendingCount is the number of entries still awaiting review, whatever
// their date.
func FormatReport(snapshot models.SummarySnapshot, pendingCount int) string {
	period := fmt.Sprintf("%s - %s", snapshot.From.Format(models.DateLayout), snapshot.To.Format(models.DateLayout))
	if len(snapshot.Users) == 0 {
		msg := fmt.Sprintf("Weekly summary (%s): no entries recorded.", period)
		if pendingCount > 0 {
			msg += fmt.Sprintf("\n%d entries still awaiting review.", pendingCount)
		}
		return msg
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly summary (%s)\n", period)
	for _, u := range snapshot.Users {
		fmt.Fprintf(&b, "%s: income %s, expenses %s, net cash %s, net bank %s, cash in hand %s",
			u.Username,
			money(u.IncomeCash.Add(u.IncomeBank)),
			money(u.ExpenseCash.Add(u.ExpenseBank)),
			money(u.NetCash),
			money(u.NetBank),
			money(u.CashInHand))
		if u.OffDays > 0 {
			fmt.Fprintf(&b, ", off %d day(s)", u.OffDays)
		}
		b.WriteString("\n")
	}

	t := snapshot.Totals
	fmt.Fprintf(&b, "Total: income %s, expenses %s, net %s.",
		money(t.IncomeCash.Add(t.IncomeBank)),
		money(t.ExpenseCash.Add(t.ExpenseBank)),
		money(t.NetCash.Add(t.NetBank)))

	if pendingCount > 0 {
		fmt.Fprintf(&b, "\n%d entries still awaiting review.", pendingCount)
	}
	return b.String()
}

func add(sum *models.UserSummary, e models.Entry) {
	sum.Entries++
	sum.ByStatus[e.EntryStatus]++
	sum.ByType[e.Type] = sum.ByType[e.Type].Add(e.TotalAmount)

	var sign decimal.Decimal
	switch {
	case e.Type.IsIncome():
		sign = decimal.NewFromInt(1)
		sum.IncomeCash = sum.IncomeCash.Add(e.CashAmount)
		sum.IncomeBank = sum.IncomeBank.Add(e.BankAmount)
	case e.Type.IsExpense():
		sign = decimal.NewFromInt(-1)
		sum.ExpenseCash = sum.ExpenseCash.Add(e.CashAmount)
		sum.ExpenseBank = sum.ExpenseBank.Add(e.BankAmount)
	case e.Type == models.EntryOff:
		sum.OffDays += e.Days()
		return
	}
	sum.NetCash = sum.IncomeCash.Sub(sum.ExpenseCash)
	sum.NetBank = sum.IncomeBank.Sub(sum.ExpenseBank)

	cash := e.CashAmount.Mul(sign)
	bank := e.BankAmount.Mul(sign)
	switch e.EntryStatus {
	case models.StatusPending, models.StatusWaiting:
		sum.CashInHand = sum.CashInHand.Add(cash)
	case models.StatusForwardedCash:
		sum.ForwardedCash = sum.ForwardedCash.Add(cash)
	case models.StatusForwardedBank, models.StatusApprovedBank:
		sum.ForwardedBank = sum.ForwardedBank.Add(bank)
	case models.StatusApproved:
		sum.Approved = sum.Approved.Add(cash.Add(bank))
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mondayStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	daysSinceMonday := (weekday + 6) % 7
	start := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
