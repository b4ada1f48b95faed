package handlers

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportHandler streams stored PDF reports to the browser.
type ReportHandler struct {
	scans    ScanReader
	sessions SessionStore
	logger   *zap.Logger
}

// NewReportHandler creates the report handler.
func NewReportHandler(scans ScanReader, sessions SessionStore, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		scans:    scans,
		sessions: sessions,
		logger:   logger,
	}
}

// ViewReport serves a scan's PDF inline. Plain-text replies match what
// the frontend shows the user on failure.
// GET /view_report/:id
func (h *ReportHandler) ViewReport(c *gin.Context) {
	token, err := c.Cookie(sessionCookie)
	if err != nil || !h.sessions.Validate(token) {
		c.String(http.StatusForbidden, "Acceso denegado")
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusNotFound, "No encontrado")
		return
	}

	scan, err := h.scans.FindByID(c.Request.Context(), uint(id))
	if err != nil || scan.ResultsPath() == "" {
		c.String(http.StatusNotFound, "No encontrado")
		return
	}

	path := scan.ResultsPath()
	if _, err := os.Stat(path); err != nil {
		h.logger.Error("Report file missing",
			zap.Uint("scan_id", scan.ID()),
			zap.String("path", path),
			zap.Error(err),
		)
		c.String(http.StatusInternalServerError, "Error al abrir PDF")
		return
	}

	c.Header("Content-Disposition", "inline")
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
