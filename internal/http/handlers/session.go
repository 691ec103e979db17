package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/http/response"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type SessionHandler struct {
	sessions services.SessionService
	uploads  services.UploadService
}

func NewSessionHandler(sessions services.SessionService, uploads services.UploadService) *SessionHandler {
	return &SessionHandler{sessions: sessions, uploads: uploads}
}

// POST /api/session/create
func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.sessions.Create()
	response.RespondOK(c, gin.H{"session": sess})
}

// GET /api/session/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		response.RespondServiceError(c, "session_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}

// DELETE /api/session/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	deleted := h.sessions.Delete(sessionID)
	if deleted && h.uploads != nil {
		h.uploads.RemoveSessionFiles(sessionID)
	}
	if !deleted {
		response.RespondError(c, http.StatusNotFound, "session_not_found",
			fmt.Errorf("session %s not found", sessionID))
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// POST /api/session/cleanup
func (h *SessionHandler) Cleanup(c *gin.Context) {
	removed := h.sessions.CleanupExpired()
	response.RespondOK(c, gin.H{"removed": removed, "active": h.sessions.Count()})
}
