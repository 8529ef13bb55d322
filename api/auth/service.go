package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"unifinance/internal/logger"
	"unifinance/internal/serviceiface"
	"unifinance/internal/session"
)

// UserSession is the wire shape returned to clients on login. The SessionID
// is the bearer token for all subsequent calls.
type UserSession struct {
	SessionID     string `json:"session_id"`
	OwnerID       string `json:"owner_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	LastLoginTime string `json:"last_login_time"`
	ClientIP      string `json:"client_ip"`
}

type AuthService struct {
	db         *sql.DB
	sessions   *session.Manager
	maxUsers   int
	sessionTTL time.Duration
	cleanEvery time.Duration
	stopCh     chan struct{}
}

func NewAuthService(db *sql.DB, maxUsers, sessionTimeoutMin, cleanerPeriodMin int) serviceiface.Service {
	if sessionTimeoutMin <= 0 {
		sessionTimeoutMin = 12 * 60
	}
	if cleanerPeriodMin <= 0 {
		cleanerPeriodMin = 10
	}
	if maxUsers <= 0 {
		maxUsers = 1000
	}
	return &AuthService{
		db:         db,
		sessions:   session.NewManager(),
		maxUsers:   maxUsers,
		sessionTTL: time.Duration(sessionTimeoutMin) * time.Minute,
		cleanEvery: time.Duration(cleanerPeriodMin) * time.Minute,
		stopCh:     make(chan struct{}),
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	go a.sessionCleaner()
	return nil
}

func (a *AuthService) Stop() error {
	close(a.stopCh)
	return nil
}

func (a *AuthService) Login(email, password, clientIP string) (*UserSession, error) {
	if a.sessions.Count() >= a.maxUsers {
		return nil, errors.New("maximum concurrent users reached")
	}

	var ownerID, name, dbEmail string
	query := `
    SELECT id, name, email
    FROM users
    WHERE email = $1 AND password_hash = crypt($2, password_hash)
    `
	err := a.db.QueryRow(query, email, password).Scan(&ownerID, &name, &dbEmail)
	if err != nil {
		return nil, errors.New("invalid credentials or user not found")
	}

	s := a.sessions.Create(ownerID, name, dbEmail, clientIP, a.sessionTTL)

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit(fmt.Sprintf("User logged in: %s", dbEmail))
	}

	return &UserSession{
		SessionID:     s.ID,
		OwnerID:       s.OwnerID,
		Name:          s.Name,
		Email:         s.Email,
		LastLoginTime: s.CreatedAt.Format(time.RFC3339),
		ClientIP:      s.ClientIP,
	}, nil
}

func (a *AuthService) Logout(sessionID string) error {
	if !a.sessions.Delete(sessionID) {
		return errors.New("session not found")
	}
	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("Session closed: " + sessionID)
	}
	return nil
}

// ResolveToken maps a bearer token to the owning user. Every owner-scoped
// handler goes through this before touching the store.
func (a *AuthService) ResolveToken(token string) (*session.Session, bool) {
	return a.sessions.Get(token)
}

func (a *AuthService) GetActiveSessions() []*session.Session {
	return a.sessions.Active()
}

func (a *AuthService) sessionCleaner() {
	ticker := time.NewTicker(a.cleanEvery)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.sessions.CleanupExpired()
		}
	}
}

var globalAuthService *AuthService

// SetGlobalAuthService wires the AuthService for middleware running in the
// ledger and dash listeners.
func SetGlobalAuthService(svc *AuthService) {
	globalAuthService = svc
}

// ResolveToken resolves a bearer token against the global AuthService.
func ResolveToken(token string) (*session.Session, bool) {
	if globalAuthService == nil {
		return nil, false
	}
	return globalAuthService.ResolveToken(token)
}

// GetActiveSessions returns active sessions from the global AuthService.
func GetActiveSessions() []*session.Session {
	if globalAuthService == nil {
		return nil
	}
	return globalAuthService.GetActiveSessions()
}
