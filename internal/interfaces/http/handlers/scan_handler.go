package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/domain/entity"
	"github.com/mollysec/molly/internal/domain/service"
)

// ScanReader is the read-only slice of the scan repository the status
// endpoints need.
type ScanReader interface {
	FindByID(ctx context.Context, id uint) (*entity.Scan, error)
	FindAll(ctx context.Context) ([]*entity.Scan, error)
}

// ScanStatusHandler serves scan status polling, the activity snapshot
// and the stored scan listing.
type ScanStatusHandler struct {
	scans    ScanReader
	sessions SessionStore
	activity *service.ActivityTracker
	logger   *zap.Logger
}

// NewScanStatusHandler creates the scan status handler.
func NewScanStatusHandler(scans ScanReader, sessions SessionStore, activity *service.ActivityTracker, logger *zap.Logger) *ScanStatusHandler {
	return &ScanStatusHandler{
		scans:    scans,
		sessions: sessions,
		activity: activity,
		logger:   logger,
	}
}

// CheckScanStatus reports whether a scan finished and where its report
// lives. Polled by the frontend while a scan runs.
// GET /api/check_scan_status/:id
func (h *ScanStatusHandler) CheckScanStatus(c *gin.Context) {
	if _, ok := requireAuth(c, h.sessions); !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
		return
	}

	scan, err := h.scans.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
		return
	}

	if scan.Status().IsTerminal() {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     string(scan.Status()),
			"summary":    scan.Summary(),
			"report_url": fmt.Sprintf("%s://%s/view_report/%d", scheme, c.Request.Host, scan.ID()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "in_progress"})
}

// SessionStatus returns the activity tracker's snapshot of the current
// scan context.
// GET /api/session_status
func (h *ScanStatusHandler) SessionStatus(c *gin.Context) {
	if _, ok := requireAuth(c, h.sessions); !ok {
		return
	}

	scanInfo := h.activity.CurrentScanInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":         scanInfo,
		"active_project": scanInfo.SessionName,
	})
}

// ListScans returns every stored scan, most recent first.
// GET /api/scans
func (h *ScanStatusHandler) ListScans(c *gin.Context) {
	if _, ok := requireAuth(c, h.sessions); !ok {
		return
	}

	scans, err := h.scans.FindAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list scans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}

	out := make([]gin.H, 0, len(scans))
	for _, s := range scans {
		out = append(out, scanRow(s))
	}
	c.JSON(http.StatusOK, out)
}

// scanRow serializes one scan the way the frontend consumes it.
func scanRow(s *entity.Scan) gin.H {
	var endTime interface{}
	if t := s.EndTime(); t != nil {
		endTime = t.Format(time.RFC3339)
	}
	return gin.H{
		"id":           s.ID(),
		"session_name": s.SessionName(),
		"scan_type":    s.ScanType(),
		"target":       s.Target(),
		"start_time":   s.StartTime().Format(time.RFC3339),
		"end_time":     endTime,
		"status":       string(s.Status()),
		"summary":      s.Summary(),
		"results_path": s.ResultsPath(),
	}
}
