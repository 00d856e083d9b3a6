package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportingService is what the summary routes need.
type ReportingService interface {
	Summary(ctx context.Context, actor models.User, filter models.Filter) (models.SummarySnapshot, error)
	Daily(ctx context.Context, actor models.User, filter models.Filter) ([]models.DailyTotal, error)
}

// ExportService renders workbooks.
type ExportService interface {
	EntriesXLSX(ctx context.Context, actor models.User, filter models.Filter) ([]byte, error)
}

// ReportHandler serves summaries and exports.
type ReportHandler struct {
	reporting ReportingService
	export    ExportService
	logger    *zap.Logger
}

// NewReportHandler constructs the reporting HTTP adapter.
func NewReportHandler(reporting ReportingService, export ExportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reporting: reporting, export: export, logger: logger}
}

// Summary returns per-user cash and bank totals plus the grand total.
func (h *ReportHandler) Summary(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	filter, err := queryFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	summary, err := h.reporting.Summary(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Daily returns income and expense per day.
func (h *ReportHandler) Daily(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	filter, err := queryFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	days, err := h.reporting.Daily(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// Export streams an XLSX workbook of the filtered entries.
func (h *ReportHandler) Export(c *gin.Context) {
	actor, ok := mustUser(c, h.logger)
	if !ok {
		return
	}
	filter, err := queryFilter(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	data, err := h.export.EntriesXLSX(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("entries-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
