package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chirp-backend/session"
)

// SessionHandler serves the session state and wallet connection.
type SessionHandler struct {
	machine *session.Machine
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(machine *session.Machine) *SessionHandler {
	return &SessionHandler{machine: machine}
}

// GetSession returns the current session state.
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.machine.Snapshot())
}

// Connect requests wallet authorization. The resulting state is returned
// even when the connection failed, so the client can follow its redirect.
func (h *SessionHandler) Connect(c *gin.Context) {
	state, err := h.machine.Connect(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "session": state})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Reload resets the session as a fresh page load would.
func (h *SessionHandler) Reload(c *gin.Context) {
	state, err := h.machine.Reload(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "session": state})
		return
	}
	c.JSON(http.StatusOK, state)
}
