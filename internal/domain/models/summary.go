package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TotalsKey is the Username of the grand-total summary row.
const TotalsKey = "*"

// UserSummary aggregates a user's entries into cash and bank figures.
type UserSummary struct {
	Username      string                        `json:"username"`
	IncomeCash    decimal.Decimal               `json:"incomeCash"`
	IncomeBank    decimal.Decimal               `json:"incomeBank"`
	ExpenseCash   decimal.Decimal               `json:"expenseCash"`
	ExpenseBank   decimal.Decimal               `json:"expenseBank"`
	NetCash       decimal.Decimal               `json:"netCash"`
	NetBank       decimal.Decimal               `json:"netBank"`
	CashInHand    decimal.Decimal               `json:"cashInHand"`
	ForwardedCash decimal.Decimal               `json:"forwardedCash"`
	ForwardedBank decimal.Decimal               `json:"forwardedBank"`
	Approved      decimal.Decimal               `json:"approved"`
	OffDays       int                           `json:"offDays"`
	Entries       int                           `json:"entries"`
	ByStatus      map[EntryStatus]int           `json:"byStatus"`
	ByType        map[EntryType]decimal.Decimal `json:"byType"`
}

// NewUserSummary returns a zeroed summary with its maps allocated.
func NewUserSummary(username string) UserSummary {
	return UserSummary{
		Username: username,
		ByStatus: make(map[EntryStatus]int),
		ByType:   make(map[EntryType]decimal.Decimal),
	}
}

// DailyTotal is one row of a per-day breakdown.
type DailyTotal struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// SummarySnapshot is an archived, point-in-time summary of a period.
type SummarySnapshot struct {
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Users       []UserSummary `json:"users"`
	Totals      UserSummary   `json:"totals"`
}
