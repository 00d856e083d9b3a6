package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/service/approval"
)

// EntryService is what the entry routes need from the entry service.
type EntryService interface {
	Submit(ctx context.Context, actor models.User, entry models.Entry) (models.Entry, error)
	Edit(ctx context.Context, actor models.User, entry models.Entry) (models.Entry, error)
	Delete(ctx context.Context, actor models.User, id int64) error
	Get(ctx context.Context, actor models.User, id int64) (models.Entry, error)
	List(ctx context.Context, actor models.User, filter models.Filter) ([]models.Entry, error)
}

// ApprovalService is what the status routes need from the approval service.
type ApprovalService interface {
	Transition(ctx context.Context, actor models.User, id int64, to models.EntryStatus) (models.Entry, error)
	BulkTransition(ctx context.Context, actor models.User, ids []int64, to models.EntryStatus) ([]approval.Result, error)
}

// EntryHandler serves entry CRUD and status changes.
type EntryHandler struct {
	entries  EntryService
	approval ApprovalService
	logger   *zap.Logger
}

// NewEntryHandler constructs the entry HTTP adapter.
func NewEntryHandler(entries EntryService, approval ApprovalService, logger *zap.Logger) *EntryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryHandler{entries: entries, approval: approval, logger: logger}
}

type statusRequest struct {
	EntryStatus models.EntryStatus `json:"entryStatus" binding:"required"`
}

type bulkStatusRequest struct {
	EntryIDs    []int64            `json:"entryIds" binding:"required,min=1"`
	EntryStatus models.EntryStatus `json:"entryStatus" binding:"required"`
}

// List returns the caller's visible entries, newest first.
func (h *EntryHandler) List(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	filter, err := queryFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	list, err := h.entries.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": list, "count": len(list)})
}

// Create submits a new entry.
func (h *EntryHandler) Create(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	var entry models.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		h.logger.Warn("invalid entry payload", zap.Error(err))
		respondError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	created, err := h.entries.Submit(c.Request.Context(), actor, entry)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get returns one entry.
func (h *EntryHandler) Get(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	id, err := entryIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry, err := h.entries.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Update replaces the editable fields of an entry. The path id wins over the body.
func (h *EntryHandler) Update(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	id, err := entryIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var entry models.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		h.logger.Warn("invalid entry payload", zap.Error(err))
		respondError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	entry.EntryID = id

	updated, err := h.entries.Edit(c.Request.Context(), actor, entry)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete removes an entry.
func (h *EntryHandler) Delete(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	id, err := entryIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.entries.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transitions lists the statuses the caller may move the entry to.
func (h *EntryHandler) Transitions(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	id, err := entryIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry, err := h.entries.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entryId":     entry.EntryID,
		"entryStatus": entry.EntryStatus,
		"allowed":     approval.Allowed(actor, entry),
	})
}

// UpdateStatus moves one entry through the workflow.
func (h *EntryHandler) UpdateStatus(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	id, err := entryIDParam(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	entry, err := h.approval.Transition(c.Request.Context(), actor, id, req.EntryStatus)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// BulkStatus moves several entries to the same status. Per-entry failures are
// reported in the results; the response is 207 when any entry failed.
func (h *EntryHandler) BulkStatus(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	results, err := h.approval.BulkTransition(c.Request.Context(), actor, req.EntryIDs, req.EntryStatus)
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"results": results})
}
