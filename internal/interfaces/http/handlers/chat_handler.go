package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mollysec/molly/internal/application/usecase"
	"github.com/mollysec/molly/internal/domain/service"
)

// QueryDispatcher routes one user turn to the orchestrator.
type QueryDispatcher interface {
	HandleQuery(ctx context.Context, chatID, userText string) (*usecase.QueryResult, error)
}

// ChatHandler serves the conversational endpoint. Each authenticated
// user gets one chat bound to their session token.
type ChatHandler struct {
	dispatcher QueryDispatcher
	sessions   SessionStore
	activity   *service.ActivityTracker
	logger     *zap.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(dispatcher QueryDispatcher, sessions SessionStore, activity *service.ActivityTracker, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		sessions:   sessions,
		activity:   activity,
		logger:     logger,
	}
}

// ChatRequest is the chat body.
type ChatRequest struct {
	Message string `json:"message"`
}

// chatReply is the inner response object: the prose plus the scan
// references when the turn triggered one.
type chatReply struct {
	Response string `json:"response"`
	ScanID   *uint  `json:"scan_id,omitempty"`
	PDFPath  string `json:"pdf_path,omitempty"`
}

// Chat processes one user message.
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	token, ok := requireAuth(c, h.sessions)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mensaje vacio"})
		return
	}

	chatID := "chat-" + token
	result, err := h.dispatcher.HandleQuery(c.Request.Context(), chatID, req.Message)
	if err != nil {
		h.logger.Error("Chat query failed",
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno"})
		return
	}

	scanInfo := h.activity.CurrentScanInfo()
	c.JSON(http.StatusOK, gin.H{
		"response": chatReply{
			Response: result.Response,
			ScanID:   result.ScanID,
			PDFPath:  result.PDFPath,
		},
		"session_status": scanInfo,
		"active_project": scanInfo.SessionName,
	})
}
