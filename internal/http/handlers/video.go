package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/http/response"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type VideoHandler struct {
	videos services.VideoService
}

func NewVideoHandler(videos services.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// POST /api/videos/generate-scenes
func (h *VideoHandler) GenerateScenes(c *gin.Context) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	jobID, err := h.videos.StartScenes(c.Request.Context(), req.SessionID)
	if err != nil {
		response.RespondServiceError(c, "video_generation_failed", err)
		return
	}
	status, err := h.videos.Status(req.SessionID, jobID)
	if err != nil {
		response.RespondServiceError(c, "video_status_failed", err)
		return
	}
	response.RespondOK(c, status)
}

// GET /api/videos/status/:job_id?session_id=...
func (h *VideoHandler) Status(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	status, err := h.videos.Status(sessionID, jobID)
	if err != nil {
		response.RespondServiceError(c, "video_status_failed", err)
		return
	}
	response.RespondOK(c, status)
}

// POST /api/videos/regenerate-scene
func (h *VideoHandler) RegenerateScene(c *gin.Context) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
		Scenario  string    `json:"scenario"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.videos.RegenerateScene(c.Request.Context(), req.SessionID, req.Scenario); err != nil {
		response.RespondServiceError(c, "scene_video_regeneration_failed", err)
		return
	}
	status, err := h.videos.Status(req.SessionID, uuid.Nil)
	if err != nil {
		response.RespondServiceError(c, "video_status_failed", err)
		return
	}
	response.RespondOK(c, status)
}

// POST /api/videos/merge
func (h *VideoHandler) Merge(c *gin.Context) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	finalURL, err := h.videos.Merge(c.Request.Context(), req.SessionID)
	if err != nil {
		response.RespondServiceError(c, "video_merge_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"final_video_url": finalURL})
}
