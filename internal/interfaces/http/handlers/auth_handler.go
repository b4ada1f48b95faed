package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionStore is the slice of the auth session manager the handlers
// need.
type SessionStore interface {
	Create(userID int) string
	Validate(token string) bool
	End(token string)
}

// sessionCookie is the cookie carrying the auth token.
const sessionCookie = "session"

// AuthHandler serves login and logout.
type AuthHandler struct {
	sessions SessionStore
	username string
	password string
	logger   *zap.Logger
}

// NewAuthHandler creates the auth handler with the configured
// credentials.
func NewAuthHandler(sessions SessionStore, username, password string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		username: username,
		password: password,
		logger:   logger,
	}
}

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the fixed credentials and sets the session
// cookie.
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales invalidas"})
		return
	}

	if req.Username != h.username || req.Password != h.password {
		h.logger.Warn("Login rejected", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales invalidas"})
		return
	}

	token := h.sessions.Create(1)
	c.SetCookie(sessionCookie, token, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login OK"})
}

// Logout deactivates the session bound to the cookie.
// POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		h.sessions.End(token)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logout OK"})
}

// requireAuth extracts and validates the session cookie. On failure it
// writes the 401 reply and returns false.
func requireAuth(c *gin.Context, sessions SessionStore) (string, bool) {
	token, err := c.Cookie(sessionCookie)
	if err != nil || !sessions.Validate(token) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sesion no valida"})
		return "", false
	}
	return token, true
}
