package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/service"
	"github.com/pageza/macrotrack/backend/internal/storage"
	"github.com/pageza/macrotrack/backend/internal/types"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user, h.profileService.PhotoURL(c.Request.Context(), user)))
}

// CompleteProfile stores date of birth, gender, height and the API key.
func (h *ProfileHandler) CompleteProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CompleteProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	dob, err := parseDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.profileService.CompleteProfile(c.Request.Context(), user.ID, service.CompleteProfileInput{
		DateOfBirth: dob,
		Gender:      req.Gender,
		Height:      req.Height,
		APIKey:      req.OpenAIAPIKey,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(updated, h.profileService.PhotoURL(c.Request.Context(), updated)))
}

func (h *ProfileHandler) SetAPIKey(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.APIKeyRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.profileService.SetAPIKey(c.Request.Context(), user.ID, req.OpenAIAPIKey)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(updated, h.profileService.PhotoURL(c.Request.Context(), updated)))
}

// UploadPhoto accepts a multipart "photo" field holding a JPEG or PNG.
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxPhotoBytes+64<<10)
	header, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.logger, &service.ValidationError{Field: "photo", Message: "must be at most 2 MB"})
			return
		}
		respondError(c, h.logger, &service.ValidationError{Field: "photo", Message: "is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxPhotoBytes+1))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.profileService.UploadPhoto(c.Request.Context(), user.ID, data)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(updated, h.profileService.PhotoURL(c.Request.Context(), updated)))
}

func (h *ProfileHandler) DeletePhoto(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.profileService.DeletePhoto(c.Request.Context(), user.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
