package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/domain"
	"github.com/peres84/AdFlowEcomm/internal/http/response"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/services"
)

type UploadHandler struct {
	log      *logger.Logger
	sessions services.SessionService
	uploads  services.UploadService
}

func NewUploadHandler(log *logger.Logger, sessions services.SessionService, uploads services.UploadService) *UploadHandler {
	return &UploadHandler{
		log:      log.With("handler", "UploadHandler"),
		sessions: sessions,
		uploads:  uploads,
	}
}

// POST /api/upload/product
func (h *UploadHandler) UploadProduct(c *gin.Context) {
	h.upload(c, services.UploadProduct, func(s *domain.Session, stored services.StoredUpload) {
		s.ProductImagePath = stored.Path
		s.ProductImageURL = stored.URL
		// A new photo invalidates everything derived from the old one.
		s.ProductAnalysis = nil
		s.GeneratedImages = nil
		s.SelectedImages = nil
		s.SceneDescriptions = nil
	})
}

// POST /api/upload/logo
func (h *UploadHandler) UploadLogo(c *gin.Context) {
	h.upload(c, services.UploadLogo, func(s *domain.Session, stored services.StoredUpload) {
		s.LogoImagePath = stored.Path
		s.LogoImageURL = stored.URL
	})
}

func (h *UploadHandler) upload(c *gin.Context, kind services.UploadKind, apply func(*domain.Session, services.StoredUpload)) {
	sessionID, err := uuid.Parse(c.PostForm("session_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	if _, err := h.sessions.Get(sessionID); err != nil {
		response.RespondServiceError(c, "session_not_found", err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file",
			fmt.Errorf("form field %q is required: %w", "file", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	stored, err := h.uploads.Save(sessionID, kind, fileHeader.Filename, data)
	if err != nil {
		response.RespondServiceError(c, "upload_failed", err)
		return
	}
	if _, err := h.sessions.Update(sessionID, func(s *domain.Session) error {
		apply(s, stored)
		return nil
	}); err != nil {
		response.RespondServiceError(c, "session_update_failed", err)
		return
	}

	h.log.Info("Upload stored", "session_id", sessionID, "kind", string(kind), "url", stored.URL)
	response.RespondOK(c, gin.H{
		"url":    stored.URL,
		"width":  stored.Width,
		"height": stored.Height,
	})
}
