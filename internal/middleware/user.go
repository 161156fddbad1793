package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/models"
)

const (
	contextUser = "user"

	// TimezoneHeader carries the browser's IANA zone on every request.
	TimezoneHeader = "X-User-Timezone"
)

// ErrUserNotFound is returned by a UserStore for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// UserStore loads the authenticated user and records timezone changes.
type UserStore interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateTimezone(ctx context.Context, user *models.User, tz string) (bool, error)
}

// LoadUser resolves the authenticated user and applies the timezone header.
// It must run after AuthMiddleware.
func LoadUser(store UserStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, "unauthorized", "user not authenticated")
			return
		}

		user, err := store.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				Abort(c, http.StatusUnauthorized, "unauthorized", "user no longer exists")
				return
			}
			logger.Error("failed to load user", zap.String("user_id", userID.String()), zap.Error(err))
			Abort(c, http.StatusInternalServerError, "internal_error", "failed to load user")
			return
		}

		if tz := c.GetHeader(TimezoneHeader); tz != "" {
			// A bad header never fails the request
			if _, err := store.UpdateTimezone(c.Request.Context(), user, tz); err != nil {
				logger.Warn("failed to update timezone", zap.String("user_id", userID.String()), zap.Error(err))
			}
		}

		c.Set(contextUser, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by LoadUser.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(contextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// RequireCompleteProfile blocks the inference features until the profile,
// API key included, is filled in.
func RequireCompleteProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, "unauthorized", "user not authenticated")
			return
		}
		if !user.HasCompletedProfile() {
			Abort(c, http.StatusForbidden, "profile_incomplete", "complete your profile and add an OpenAI API key first")
			return
		}
		c.Next()
	}
}
