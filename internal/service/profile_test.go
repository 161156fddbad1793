package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/macrotrack/backend/internal/models"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func TestCompleteProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bare := &models.User{Name: "Ben", Email: "ben@example.com", PasswordHash: "x"}
	require.NoError(t, f.db.Create(bare).Error)
	assert.False(t, bare.HasCompletedProfile())

	user, err := f.profiles.CompleteProfile(ctx, bare.ID, CompleteProfileInput{
		DateOfBirth: time.Date(1985, 7, 30, 0, 0, 0, 0, time.UTC),
		Gender:      "other",
		Height:      180.456,
		APIKey:      " sk-ben ",
	})
	require.NoError(t, err)
	assert.True(t, user.HasCompletedProfile())
	assert.Equal(t, 180.46, *user.Height)

	reloaded, err := f.profiles.GetUser(ctx, bare.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.HasCompletedProfile())
	assert.NotContains(t, reloaded.EncryptedAPIKey, "sk-ben")

	key, err := f.profiles.APIKey(reloaded)
	require.NoError(t, err)
	assert.Equal(t, "sk-ben", key)
}

func TestCompleteProfileValidation(t *testing.T) {
	f := newFixture(t)
	valid := CompleteProfileInput{
		DateOfBirth: time.Date(1985, 7, 30, 0, 0, 0, 0, time.UTC),
		Gender:      "male",
		Height:      170,
		APIKey:      "sk",
	}

	cases := map[string]func(in *CompleteProfileInput){
		"date_of_birth":  func(in *CompleteProfileInput) { in.DateOfBirth = fixedNow.AddDate(0, 0, 1) },
		"gender":         func(in *CompleteProfileInput) { in.Gender = "" },
		"height":         func(in *CompleteProfileInput) { in.Height = 301 },
		"openai_api_key": func(in *CompleteProfileInput) { in.APIKey = strings.Repeat("k", 256) },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := f.profiles.CompleteProfile(context.Background(), f.user.ID, in)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, field, ve.Field)
		})
	}
}

func TestSetAPIKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.profiles.SetAPIKey(ctx, f.user.ID, "sk-new")
	require.NoError(t, err)
	key, err := f.profiles.APIKey(user)
	require.NoError(t, err)
	assert.Equal(t, "sk-new", key)

	user, err = f.profiles.SetAPIKey(ctx, f.user.ID, "")
	require.NoError(t, err)
	assert.False(t, user.HasAPIKey())
	assert.False(t, user.HasCompletedProfile())

	_, err = f.profiles.APIKey(user)
	assert.ErrorIs(t, err, ErrAPIKeyNotConfigured)
}

func TestUpdateTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	changed, err := f.profiles.UpdateTimezone(ctx, f.user, "America/New_York")
	require.NoError(t, err)
	assert.True(t, changed)

	reloaded, err := f.profiles.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", reloaded.Timezone)

	for _, tz := range []string{"America/New_York", "Not/AZone", "", "Local"} {
		changed, err = f.profiles.UpdateTimezone(ctx, f.user, tz)
		require.NoError(t, err)
		assert.False(t, changed, tz)
	}
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.photos.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "profile-photos/"+f.user.ID.String()+"/") && strings.HasSuffix(key, ".png")
	}), pngBytes, "image/png").Return(nil).Twice()

	first, err := f.profiles.UploadPhoto(ctx, f.user.ID, pngBytes)
	require.NoError(t, err)
	firstKey := first.ProfilePhotoPath
	assert.NotEmpty(t, firstKey)

	f.photos.On("Delete", mock.Anything, firstKey).Return(nil).Once()
	second, err := f.profiles.UploadPhoto(ctx, f.user.ID, pngBytes)
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, second.ProfilePhotoPath)

	f.photos.On("URL", mock.Anything, second.ProfilePhotoPath).Return("https://signed.example/photo", nil)
	assert.Equal(t, "https://signed.example/photo", f.profiles.PhotoURL(ctx, second))

	f.photos.On("Delete", mock.Anything, second.ProfilePhotoPath).Return(nil).Once()
	require.NoError(t, f.profiles.DeletePhoto(ctx, f.user.ID))

	reloaded, err := f.profiles.GetUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.ProfilePhotoPath)
	assert.Empty(t, f.profiles.PhotoURL(ctx, reloaded))
	f.photos.AssertExpectations(t)
}

func TestUploadPhotoRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.profiles.UploadPhoto(ctx, f.user.ID, []byte("GIF89a not allowed"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.profiles.UploadPhoto(ctx, f.user.ID, append(pngBytes, make([]byte, 2<<20)...))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.profiles.UploadPhoto(ctx, f.user.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)
	f.photos.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPhotoStorageDisabled(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.db, f.encryptor, nil, nil)

	_, err := profiles.UploadPhoto(context.Background(), f.user.ID, pngBytes)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.ErrorIs(t, profiles.DeletePhoto(context.Background(), f.user.ID), ErrStorageDisabled)
}
