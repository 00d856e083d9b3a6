package models

import (
	"fmt"
	"strings"
)

// EntryStatus is the approval workflow label of an entry.
type EntryStatus string

const (
	StatusPending       EntryStatus = "pending"
	StatusWaiting       EntryStatus = "waiting"
	StatusForwardedCash EntryStatus = "forwardedCash"
	StatusForwardedBank EntryStatus = "forwardedBank"
	StatusApprovedBank  EntryStatus = "approvedBank"
	StatusApproved      EntryStatus = "approved"
)

// EntryStatuses lists every status in workflow order.
var EntryStatuses = []EntryStatus{
	StatusPending, StatusWaiting, StatusForwardedCash, StatusForwardedBank, StatusApprovedBank, StatusApproved,
}

// ParseEntryStatus converts a raw string into a known EntryStatus.
func ParseEntryStatus(raw string) (EntryStatus, error) {
	s := EntryStatus(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", fmt.Errorf("unknown entry status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	for _, known := range EntryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Open reports whether the money is still with the submitter's manager,
// i.e. not yet forwarded or approved.
func (s EntryStatus) Open() bool {
	return s == StatusPending || s == StatusWaiting
}

// Final reports whether no further transition is possible.
func (s EntryStatus) Final() bool {
	return s == StatusApproved
}

func (s *EntryStatus) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = ""
		return nil
	}
	parsed, err := ParseEntryStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Role is the access level of a user.
type Role string

const (
	RoleDriver  Role = "driver"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a raw string into a known Role.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleDriver, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// CanReview reports whether the role may see and move other users' entries.
func (r Role) CanReview() bool {
	return r == RoleManager || r == RoleAdmin
}
