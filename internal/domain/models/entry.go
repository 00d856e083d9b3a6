package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used on the wire and in the sheet.
const DateLayout = "2006-01-02"

// EntryType enumerates the kinds of bookkeeping rows the forms submit.
type EntryType string

const (
	EntryDaily     EntryType = "daily"
	EntryBooking   EntryType = "booking"
	EntryOff       EntryType = "off"
	EntryFuel      EntryType = "fuel"
	EntryAdda      EntryType = "adda"
	EntryUnion     EntryType = "union"
	EntryService   EntryType = "service"
	EntryOther     EntryType = "other"
	EntryFood      EntryType = "food"
	EntryTransport EntryType = "transport"
)

// EntryTypes lists every known type in display order.
var EntryTypes = []EntryType{
	EntryDaily, EntryBooking, EntryOff,
	EntryFuel, EntryAdda, EntryUnion, EntryService, EntryOther, EntryFood, EntryTransport,
}

// ParseEntryType converts a raw string into a known EntryType.
func ParseEntryType(raw string) (EntryType, error) {
	t := EntryType(strings.TrimSpace(raw))
	if !t.Valid() {
		return "", fmt.Errorf("unknown entry type %q", raw)
	}
	return t, nil
}

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	for _, known := range EntryTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsIncome reports whether the entry brings money in.
func (t EntryType) IsIncome() bool {
	return t == EntryDaily || t == EntryBooking
}

// IsExpense reports whether the entry records a payment.
func (t EntryType) IsExpense() bool {
	return t.Valid() && !t.IsIncome() && t != EntryOff
}

// IsCalendar reports whether the entry occupies the submitter's calendar.
// Calendar entries of the same user must not share a day.
func (t EntryType) IsCalendar() bool {
	return t == EntryDaily || t == EntryBooking || t == EntryOff
}

// MultiDay reports whether the type may span a date range.
func (t EntryType) MultiDay() bool {
	return t == EntryBooking || t == EntryOff
}

func (t *EntryType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = ""
		return nil
	}
	parsed, err := ParseEntryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Entry is one bookkeeping row. JSON names are shared with the web forms and
// the Apps Script endpoint.
type Entry struct {
	EntryID     int64           `json:"entryId"`
	Type        EntryType       `json:"type"`
	Date        string          `json:"date"`
	EndDate     string          `json:"endDate,omitempty"`
	Vehicle     string          `json:"vehicle,omitempty"`
	Route       string          `json:"route,omitempty"`
	Description string          `json:"description,omitempty"`
	CashAmount  decimal.Decimal `json:"cashAmount"`
	BankAmount  decimal.Decimal `json:"bankAmount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	SubmittedBy string          `json:"submittedBy"`
	EntryStatus EntryStatus     `json:"entryStatus"`
	ReviewedBy  string          `json:"reviewedBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Normalize trims free text, defaults EndDate to Date and fills TotalAmount
// when the client left it empty.
func (e *Entry) Normalize() {
	e.Date = strings.TrimSpace(e.Date)
	e.EndDate = strings.TrimSpace(e.EndDate)
	e.Vehicle = strings.TrimSpace(e.Vehicle)
	e.Route = strings.TrimSpace(e.Route)
	e.Description = strings.TrimSpace(e.Description)
	e.SubmittedBy = strings.TrimSpace(e.SubmittedBy)

	if e.EndDate == "" {
		e.EndDate = e.Date
	}
	if e.TotalAmount.IsZero() {
		e.TotalAmount = e.CashAmount.Add(e.BankAmount)
	}
}

// Validate checks the entry invariants. Call Normalize first.
func (e Entry) Validate() error {
	if !e.Type.Valid() {
		return NewValidationError("type", e.Type, "unknown entry type")
	}

	start, end, err := e.Span()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return NewValidationError("endDate", e.EndDate, "must not be before date")
	}
	if !e.Type.MultiDay() && !end.Equal(start) {
		return NewValidationError("endDate", e.EndDate, fmt.Sprintf("%s entries cover a single day", e.Type))
	}

	if e.CashAmount.IsNegative() {
		return NewValidationError("cashAmount", e.CashAmount, "must not be negative")
	}
	if e.BankAmount.IsNegative() {
		return NewValidationError("bankAmount", e.BankAmount, "must not be negative")
	}
	sum := e.CashAmount.Add(e.BankAmount)
	if !e.TotalAmount.Equal(sum) {
		return NewValidationError("totalAmount", e.TotalAmount, fmt.Sprintf("must equal cashAmount + bankAmount (%s)", sum))
	}

	if e.Type == EntryOff {
		if !sum.IsZero() {
			return NewValidationError("totalAmount", e.TotalAmount, "off entries carry no amount")
		}
	} else if !sum.IsPositive() {
		return NewValidationError("totalAmount", e.TotalAmount, "must be greater than zero")
	}

	if e.SubmittedBy == "" {
		return NewValidationError("submittedBy", e.SubmittedBy, "is required")
	}
	if e.EntryStatus != "" && !e.EntryStatus.Valid() {
		return NewValidationError("entryStatus", e.EntryStatus, "unknown status")
	}
	return nil
}

// Span returns the first and last calendar day the entry covers.
func (e Entry) Span() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, time.Time{}, NewValidationError("date", e.Date, "must be YYYY-MM-DD")
	}
	if e.EndDate == "" {
		return start, start, nil
	}
	end, err := time.Parse(DateLayout, e.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, NewValidationError("endDate", e.EndDate, "must be YYYY-MM-DD")
	}
	return start, end, nil
}

// Overlaps reports whether both entries cover at least one common day.
// Entries with unparsable dates never overlap.
func (e Entry) Overlaps(other Entry) bool {
	aStart, aEnd, err := e.Span()
	if err != nil {
		return false
	}
	bStart, bEnd, err := other.Span()
	if err != nil {
		return false
	}
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Within reports whether the entry intersects [from, to]. Zero bounds are open.
func (e Entry) Within(from, to time.Time) bool {
	start, end, err := e.Span()
	if err != nil {
		return false
	}
	if !from.IsZero() && end.Before(from) {
		return false
	}
	if !to.IsZero() && start.After(to) {
		return false
	}
	return true
}

// Days returns the number of calendar days covered, at least one.
func (e Entry) Days() int {
	start, end, err := e.Span()
	if err != nil || end.Before(start) {
		return 1
	}
	return int(end.Sub(start).Hours()/24) + 1
}
