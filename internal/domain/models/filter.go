package models

import (
	"strings"
	"time"
)

// Filter selects entries for listing, summaries and exports. Zero fields
// match everything.
type Filter struct {
	From        time.Time
	To          time.Time
	SubmittedBy string
	Types       []EntryType
	Statuses    []EntryStatus
}

// ParseFilter builds a Filter from raw query values. Type and status lists
// accept repeated values or comma-separated ones.
func ParseFilter(from, to, submittedBy string, types, statuses []string) (Filter, error) {
	var f Filter

	if from = strings.TrimSpace(from); from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return Filter{}, NewValidationError("from", from, "must be YYYY-MM-DD")
		}
		f.From = t
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return Filter{}, NewValidationError("to", to, "must be YYYY-MM-DD")
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return Filter{}, NewValidationError("to", to, "must not be before from")
	}

	f.SubmittedBy = strings.TrimSpace(submittedBy)

	for _, raw := range splitList(types) {
		t, err := ParseEntryType(raw)
		if err != nil {
			return Filter{}, NewValidationError("type", raw, "unknown entry type")
		}
		f.Types = append(f.Types, t)
	}
	for _, raw := range splitList(statuses) {
		s, err := ParseEntryStatus(raw)
		if err != nil {
			return Filter{}, NewValidationError("status", raw, "unknown status")
		}
		f.Statuses = append(f.Statuses, s)
	}

	return f, nil
}

// Match reports whether the entry satisfies every set criterion.
func (f Filter) Match(e Entry) bool {
	if !e.Within(f.From, f.To) {
		return false
	}
	if f.SubmittedBy != "" && !strings.EqualFold(f.SubmittedBy, e.SubmittedBy) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, e.EntryStatus) {
		return false
	}
	return true
}

// Apply returns the matching entries, preserving order.
func (f Filter) Apply(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func containsType(list []EntryType, t EntryType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(list []EntryStatus, s EntryStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
