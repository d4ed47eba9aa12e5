package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyTier     = "tier"
	SessionKeyLoginAt  = "login_at"
	SessionKeyViewID   = "view_id"
)

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
// Anonymous callers get a session too, so their catalog view survives
// between requests.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the sessions table.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "bookshelf_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession records a successful login. The token is renewed to
// prevent session fixation; the caller's view binding is kept.
func (sm *SessionManager) CreateSession(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyUsername, user.Username)
	sm.Put(ctx, SessionKeyTier, user.Tier)
	sm.Put(ctx, SessionKeyLoginAt, time.Now())
	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// GetUserID returns the logged-in user ID, or 0 for anonymous sessions.
func (sm *SessionManager) GetUserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, SessionKeyUserID))
}

// IsAuthenticated returns true if the session belongs to a logged-in user.
func (sm *SessionManager) IsAuthenticated(ctx context.Context) bool {
	return sm.GetUserID(ctx) != 0
}

// ViewID returns the catalog view bound to this session, if any.
func (sm *SessionManager) ViewID(ctx context.Context) string {
	return sm.GetString(ctx, SessionKeyViewID)
}

// SetViewID binds a catalog view to this session.
func (sm *SessionManager) SetViewID(ctx context.Context, id string) {
	sm.Put(ctx, SessionKeyViewID, id)
}

// SessionData holds the session information for a request.
type SessionData struct {
	UserID   uint
	Username string
	Tier     int
	LoginAt  time.Time
}

// GetSessionData returns the login recorded in the session, or nil.
func (sm *SessionManager) GetSessionData(ctx context.Context) *SessionData {
	userID := sm.GetUserID(ctx)
	if userID == 0 {
		return nil
	}
	loginAt, _ := sm.Get(ctx, SessionKeyLoginAt).(time.Time)
	return &SessionData{
		UserID:   userID,
		Username: sm.GetString(ctx, SessionKeyUsername),
		Tier:     sm.GetInt(ctx, SessionKeyTier),
		LoginAt:  loginAt,
	}
}
