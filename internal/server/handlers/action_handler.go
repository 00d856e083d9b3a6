package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
)

// ActionDispatcher runs action-string requests.
type ActionDispatcher interface {
	Respond(ctx context.Context, actor models.User, req models.ActionRequest) (models.ActionResponse, error)
}

// ActionHandler serves the single-endpoint API used by forms written against
// the spreadsheet web app.
type ActionHandler struct {
	dispatcher ActionDispatcher
	logger     *zap.Logger
}

// NewActionHandler constructs the action HTTP adapter.
func NewActionHandler(dispatcher ActionDispatcher, logger *zap.Logger) *ActionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionHandler{dispatcher: dispatcher, logger: logger}
}

// Exec answers every request with the {"status", "data", "message"} envelope.
func (h *ActionHandler) Exec(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}

	var req models.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid action payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ActionResponse{Status: models.ActionStatusError, Message: ErrBadRequest.Error()})
		return
	}

	resp, err := h.dispatcher.Respond(c.Request.Context(), actor, req)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("action failed", zap.String("action", req.Action), zap.Error(err))
			resp.Message = "internal error"
		}
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
