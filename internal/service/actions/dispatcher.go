package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/service/approval"
)

// ErrInvalidArguments indicates the action payload is missing a required field.
var ErrInvalidArguments = errors.New("invalid action arguments")

// ErrUnsupportedAction indicates the action string is not recognised.
var ErrUnsupportedAction = errors.New("unsupported action")

// EntryService is the part of the entry service the dispatcher drives.
type EntryService interface {
	Submit(ctx context.Context, actor models.User, entry models.Entry) (models.Entry, error)
	Edit(ctx context.Context, actor models.User, entry models.Entry) (models.Entry, error)
	Delete(ctx context.Context, actor models.User, id int64) error
	List(ctx context.Context, actor models.User, filter models.Filter) ([]models.Entry, error)
}

// ApprovalService moves entries through the workflow.
type ApprovalService interface {
	Transition(ctx context.Context, actor models.User, id int64, to models.EntryStatus) (models.Entry, error)
	BulkTransition(ctx context.Context, actor models.User, ids []int64, to models.EntryStatus) ([]approval.Result, error)
}

// SummaryService aggregates entries.
type SummaryService interface {
	Summary(ctx context.Context, actor models.User, filter models.Filter) (models.SummarySnapshot, error)
}

// Dispatcher executes action-string requests, mirroring the spreadsheet web
// app contract on top of the local services.
type Dispatcher struct {
	entries   EntryService
	approval  ApprovalService
	reporting SummaryService
	logger    *zap.Logger
}

// NewDispatcher constructs an action dispatcher.
func NewDispatcher(entries EntryService, approval ApprovalService, reporting SummaryService, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		entries:   entries,
		approval:  approval,
		reporting: reporting,
		logger:    logger,
	}
}

// Handle runs one action and returns the value for the envelope's data field.
func (d *Dispatcher) Handle(ctx context.Context, actor models.User, req models.ActionRequest) (interface{}, error) {
	action := models.ParseAction(req.Action)
	d.logger.Debug("dispatching action", zap.String("action", req.Action), zap.String("actor", actor.Username))

	switch action {
	case models.ActionAddEntry:
		if req.Entry == nil {
			return nil, fmt.Errorf("%w: entry is required", ErrInvalidArguments)
		}
		return d.entries.Submit(ctx, actor, *req.Entry)

	case models.ActionGetEntries:
		filter, err := models.ParseFilter(req.From, req.To, req.SubmittedBy, nil, nil)
		if err != nil {
			return nil, err
		}
		return d.entries.List(ctx, actor, filter)

	case models.ActionUpdateEntry:
		if req.Entry == nil || req.Entry.EntryID == 0 {
			return nil, fmt.Errorf("%w: entry with entryId is required", ErrInvalidArguments)
		}
		return d.entries.Edit(ctx, actor, *req.Entry)

	case models.ActionDeleteEntry:
		id := req.EntryID
		if id == 0 && req.Entry != nil {
			id = req.Entry.EntryID
		}
		if id == 0 {
			return nil, fmt.Errorf("%w: entryId is required", ErrInvalidArguments)
		}
		if err := d.entries.Delete(ctx, actor, id); err != nil {
			return nil, err
		}
		return map[string]int64{"entryId": id}, nil

	case models.ActionUpdateStatus:
		if req.EntryStatus == "" {
			return nil, fmt.Errorf("%w: entryStatus is required", ErrInvalidArguments)
		}
		if len(req.EntryIDs) > 0 {
			results, err := d.approval.BulkTransition(ctx, actor, req.EntryIDs, req.EntryStatus)
			if err != nil {
				d.logger.Warn("bulk status update partially failed", zap.Error(err))
			}
			return results, nil
		}
		if req.EntryID == 0 {
			return nil, fmt.Errorf("%w: entryId or entryIds is required", ErrInvalidArguments)
		}
		return d.approval.Transition(ctx, actor, req.EntryID, req.EntryStatus)

	case models.ActionGetSummary:
		filter, err := models.ParseFilter(req.From, req.To, req.SubmittedBy, nil, nil)
		if err != nil {
			return nil, err
		}
		return d.reporting.Summary(ctx, actor, filter)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, req.Action)
	}
}

// Respond runs the action and wraps the outcome in the success/error envelope.
func (d *Dispatcher) Respond(ctx context.Context, actor models.User, req models.ActionRequest) (models.ActionResponse, error) {
	data, err := d.Handle(ctx, actor, req)
	if err != nil {
		return models.ActionResponse{Status: models.ActionStatusError, Message: err.Error()}, err
	}
	return models.ActionResponse{Status: models.ActionStatusSuccess, Data: data}, nil
}
