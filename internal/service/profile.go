package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/crypto"
	"github.com/pageza/macrotrack/backend/internal/middleware"
	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/storage"
)

const (
	MaxHeightCm     = 300
	MaxAPIKeyLength = 255
)

// ProfileService handles user profile operations
type ProfileService struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
	photos    storage.PhotoStore
	logger    *zap.Logger
	now       func() time.Time
}

var (
	_ KeyResolver          = (*ProfileService)(nil)
	_ middleware.UserStore = (*ProfileService)(nil)
)

// NewProfileService creates a new ProfileService instance. photos may be nil,
// in which case photo operations report ErrStorageDisabled.
func NewProfileService(db *gorm.DB, encryptor *crypto.Encryptor, photos storage.PhotoStore, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		db:        db,
		encryptor: encryptor,
		photos:    photos,
		logger:    logger,
		now:       time.Now,
	}
}

// GetUser loads a user by id.
func (s *ProfileService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CompleteProfileInput holds the fields that unlock the inference features.
type CompleteProfileInput struct {
	DateOfBirth time.Time
	Gender      string
	Height      float64
	APIKey      string
}

func (s *ProfileService) CompleteProfile(ctx context.Context, userID uuid.UUID, in CompleteProfileInput) (*models.User, error) {
	if in.DateOfBirth.IsZero() || !in.DateOfBirth.Before(startOfDay(s.now(), time.UTC)) {
		return nil, invalid("date_of_birth", "must be a date before today")
	}
	if !models.ValidGender(in.Gender) {
		return nil, invalid("gender", "must be one of "+strings.Join(models.Genders, ", "))
	}
	if in.Height < 0 || in.Height > MaxHeightCm {
		return nil, invalid("height", fmt.Sprintf("must be between 0 and %d", MaxHeightCm))
	}
	sealed, err := s.sealKey(in.APIKey, true)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	dob, gender, height := in.DateOfBirth, in.Gender, round2(in.Height)
	user.DateOfBirth = &dob
	user.Gender = &gender
	user.Height = &height
	user.EncryptedAPIKey = sealed

	if err := s.db.WithContext(ctx).Model(user).Select("DateOfBirth", "Gender", "Height", "EncryptedAPIKey").Updates(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SetAPIKey stores the sealed key. An empty key clears it.
func (s *ProfileService) SetAPIKey(ctx context.Context, userID uuid.UUID, apiKey string) (*models.User, error) {
	sealed, err := s.sealKey(apiKey, false)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.EncryptedAPIKey = sealed
	if err := s.db.WithContext(ctx).Model(user).Update("openai_api_key", sealed).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *ProfileService) sealKey(apiKey string, required bool) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		if required {
			return "", invalid("openai_api_key", "is required")
		}
		return "", nil
	}
	if len(apiKey) > MaxAPIKeyLength {
		return "", invalid("openai_api_key", fmt.Sprintf("must be at most %d characters", MaxAPIKeyLength))
	}
	sealed, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt api key: %w", err)
	}
	return sealed, nil
}

// APIKey decrypts the stored key for an inference call.
func (s *ProfileService) APIKey(user *models.User) (string, error) {
	if !user.HasAPIKey() {
		return "", ErrAPIKeyNotConfigured
	}
	key, err := s.encryptor.Decrypt(user.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt api key: %w", err)
	}
	return key, nil
}

// UpdateTimezone stores tz when it is a valid zone different from the current one.
// It reports whether anything changed.
func (s *ProfileService) UpdateTimezone(ctx context.Context, user *models.User, tz string) (bool, error) {
	tz = strings.TrimSpace(tz)
	if tz == user.Timezone || !ValidTimezone(tz) {
		return false, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("timezone", tz).Error; err != nil {
		return false, err
	}
	user.Timezone = tz
	return true, nil
}

// UploadPhoto replaces the user's profile photo.
func (s *ProfileService) UploadPhoto(ctx context.Context, userID uuid.UUID, data []byte) (*models.User, error) {
	if s.photos == nil {
		return nil, ErrStorageDisabled
	}
	if len(data) == 0 {
		return nil, invalid("photo", "is required")
	}
	if len(data) > storage.MaxPhotoBytes {
		return nil, invalid("photo", "must be at most 2 MB")
	}
	contentType, ext, ok := storage.DetectImage(data)
	if !ok {
		return nil, invalid("photo", "must be a JPEG or PNG image")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := storage.PhotoKey(user.ID, ext)
	if err := s.photos.Put(ctx, key, data, contentType); err != nil {
		return nil, err
	}

	previous := user.ProfilePhotoPath
	if err := s.db.WithContext(ctx).Model(user).Update("profile_photo_path", key).Error; err != nil {
		s.removeObject(ctx, key)
		return nil, err
	}
	user.ProfilePhotoPath = key

	if previous != "" {
		s.removeObject(ctx, previous)
	}
	return user, nil
}

// DeletePhoto removes the user's profile photo, if any.
func (s *ProfileService) DeletePhoto(ctx context.Context, userID uuid.UUID) error {
	if s.photos == nil {
		return ErrStorageDisabled
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.ProfilePhotoPath == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("profile_photo_path", "").Error; err != nil {
		return err
	}
	s.removeObject(ctx, user.ProfilePhotoPath)
	return nil
}

// PhotoURL returns a short-lived URL for the user's photo, or "" when none is set.
func (s *ProfileService) PhotoURL(ctx context.Context, user *models.User) string {
	if s.photos == nil || user.ProfilePhotoPath == "" {
		return ""
	}
	url, err := s.photos.URL(ctx, user.ProfilePhotoPath)
	if err != nil {
		s.logger.Warn("failed to presign profile photo", zap.String("user_id", user.ID.String()), zap.Error(err))
		return ""
	}
	return url
}

// Orphaned objects are logged rather than failing the request.
func (s *ProfileService) removeObject(ctx context.Context, key string) {
	if err := s.photos.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete profile photo", zap.String("key", key), zap.Error(err))
	}
}
