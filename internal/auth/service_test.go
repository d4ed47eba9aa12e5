package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const testPassword = "catalogue-reader-1"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func testAuthConfig() config.Auth {
	return config.Auth{
		Mode:             config.AuthModeLocal,
		BcryptCost:       4,
		MaxLoginAttempts: 3,
		LockoutDuration:  10 * time.Minute,
		OverrideTier:     2,
		DefaultTier:      0,
		SessionLifetime:  time.Hour,
	}
}

func TestService_CreateUser(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		tier     int
		wantErr  error
	}{
		{name: "curator", username: "curator", email: "curator@example.com", password: testPassword, tier: 2},
		{name: "missing username", email: "a@example.com", password: testPassword, wantErr: ErrUsernameRequired},
		{name: "missing email", username: "reader", password: testPassword, wantErr: ErrEmailRequired},
		{name: "missing password", username: "reader", email: "reader@example.com", wantErr: ErrPasswordRequired},
		{name: "invalid username", username: "a b", email: "reader@example.com", password: testPassword, wantErr: ErrUsernameInvalid},
		{name: "invalid email", username: "reader", email: "not-an-email", password: testPassword, wantErr: ErrEmailInvalid},
		{name: "negative tier", username: "reader", email: "reader@example.com", password: testPassword, tier: -1, wantErr: ErrInvalidTier},
		{name: "short password", username: "reader", email: "reader@example.com", password: "short", wantErr: ErrPasswordTooShort},
		{name: "duplicate username", username: "curator", email: "other@example.com", password: testPassword, wantErr: ErrUserExists},
		{name: "duplicate email", username: "other", email: "curator@example.com", password: testPassword, wantErr: ErrUserExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.CreateUser(ctx, tt.username, tt.email, tt.password, tt.tier)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.Equal(t, tt.tier, user.Tier)
			assert.NotEqual(t, tt.password, user.PasswordHash)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig())
	ctx := context.Background()
	created, err := svc.CreateUser(ctx, "curator", "curator@example.com", testPassword, 2)
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "curator", testPassword)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotNil(t, user.LastLoginAt)

	user, err = svc.Authenticate(ctx, "curator@example.com", testPassword)
	require.NoError(t, err, "email works as login")
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "curator", "wrong-password-1")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Authenticate(ctx, "nobody", testPassword)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_AuthenticateLockout(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig())
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, "curator", "curator@example.com", testPassword, 2)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate(ctx, "curator", "wrong-password-1")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, err = svc.Authenticate(ctx, "curator", testPassword)
	assert.ErrorIs(t, err, ErrAccountLocked, "correct password is rejected while locked")

	now = now.Add(11 * time.Minute)
	user, err := svc.Authenticate(ctx, "curator", testPassword)
	require.NoError(t, err)
	assert.Zero(t, user.FailedLoginCount)
	assert.Nil(t, user.LockedUntil)
}

func TestService_GetUserByID(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig())
	ctx := context.Background()

	has, err := svc.HasUsers(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	created, err := svc.CreateUser(ctx, "reader", "reader@example.com", testPassword, 0)
	require.NoError(t, err)

	user, err := svc.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "reader", user.Username)

	_, err = svc.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	has, err = svc.HasUsers(ctx)
	require.NoError(t, err)
	assert.True(t, has)
	assert.True(t, svc.IsAuthEnabled())
}
