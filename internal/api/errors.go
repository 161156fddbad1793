package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/middleware"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
	"github.com/pageza/macrotrack/backend/internal/service"
)

// respondError maps a service or pipeline error to its status and JSON body.
// Anything unrecognised is logged and reported as a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr *service.ValidationError
		inputErr      *nutrition.InputError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, middleware.ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
			Fields:  map[string]string{validationErr.Field: validationErr.Message},
		})
	case errors.As(err, &inputErr):
		resp := middleware.ErrorResponse{Error: "invalid_input", Message: inputErr.Error()}
		if inputErr.Field != "" {
			resp.Fields = map[string]string{inputErr.Field: inputErr.Reason}
		}
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, nutrition.ErrInvalidInput):
		writeError(c, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, "forbidden", "you do not have access to this resource")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, service.ErrUserExists):
		writeError(c, http.StatusConflict, "user_exists", "an account with this email already exists")
	case errors.Is(err, service.ErrDuplicateMealName):
		writeError(c, http.StatusConflict, "duplicate_meal_name", err.Error())
	case errors.Is(err, service.ErrFrequentMealLimit):
		writeError(c, http.StatusUnprocessableEntity, "frequent_meal_limit", err.Error())
	case errors.Is(err, service.ErrProfileIncomplete):
		writeError(c, http.StatusForbidden, "profile_incomplete", "complete your profile and add an OpenAI API key first")
	case errors.Is(err, service.ErrAPIKeyNotConfigured), errors.Is(err, nutrition.ErrMissingAPIKey):
		writeError(c, http.StatusBadRequest, "api_key_missing", "add an OpenAI API key to your profile first")
	case errors.Is(err, service.ErrStorageDisabled):
		writeError(c, http.StatusServiceUnavailable, "storage_disabled", "profile photos are not available")
	case nutrition.IsUpstream(err):
		logger.Warn("inference unavailable", zap.Error(err))
		writeError(c, http.StatusServiceUnavailable, "inference_unavailable", "the nutrition service is unavailable, try again later")
	case nutrition.IsUnparseable(err):
		logger.Warn("inference response rejected", zap.Error(err))
		writeError(c, http.StatusBadGateway, "inference_bad_response", "the nutrition service returned an unusable answer")
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, middleware.ErrorResponse{Error: code, Message: message})
}
