package models

import "strings"

// ActionType enumerates the action strings understood by the spreadsheet
// endpoint and mirrored by the /api/exec route.
type ActionType string

const (
	ActionAddEntry     ActionType = "addEntry"
	ActionGetEntries   ActionType = "getEntries"
	ActionUpdateEntry  ActionType = "updateEntry"
	ActionDeleteEntry  ActionType = "deleteEntry"
	ActionUpdateStatus ActionType = "updateStatus"
	ActionGetSummary   ActionType = "getSummary"
	ActionUnknown      ActionType = "unknown"
)

// ParseAction maps a raw action string onto an ActionType, case-insensitively.
func ParseAction(raw string) ActionType {
	normalized := strings.TrimSpace(raw)
	for _, known := range []ActionType{
		ActionAddEntry, ActionGetEntries, ActionUpdateEntry, ActionDeleteEntry, ActionUpdateStatus, ActionGetSummary,
	} {
		if strings.EqualFold(normalized, string(known)) {
			return known
		}
	}
	return ActionUnknown
}

// ActionRequest is the body of an action call.
type ActionRequest struct {
	Action      string      `json:"action"`
	Entry       *Entry      `json:"entry,omitempty"`
	EntryID     int64       `json:"entryId,omitempty"`
	EntryIDs    []int64     `json:"entryIds,omitempty"`
	EntryStatus EntryStatus `json:"entryStatus,omitempty"`
	From        string      `json:"from,omitempty"`
	To          string      `json:"to,omitempty"`
	SubmittedBy string      `json:"submittedBy,omitempty"`
}

// ActionResponse is the envelope every action answers with.
type ActionResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	ActionStatusSuccess = "success"
	ActionStatusError   = "error"
)

// Succeeded reports whether the envelope carries a success status.
func (r ActionResponse) Succeeded() bool {
	return strings.EqualFold(r.Status, ActionStatusSuccess)
}
