package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/repository"
	"github.com/commercegate/admin-security/internal/security"
)

// LoginResult carries everything the transport layer needs to set cookies.
// SessionToken is surfaced exactly once here and nowhere else.
type LoginResult struct {
	User         *domain.User
	Session      *domain.Session
	SessionToken string
	CSRFToken    string
}

// AuthService sequences the login path: lockout guard first, then the
// credential verifier, then session issuance.
type AuthService struct {
	users      repository.UserRepository
	sessions   *SessionService
	lockout    *RedisLockoutGuard
	csrf       *security.CSRFBinder
	bcryptCost int

	// verify is security.VerifyPassword; a field so tests can observe that
	// every failure path pays for a verification.
	verify func(password, hash string) bool
	// dummyHash is burned on unknown accounts so a miss costs the same
	// bcrypt work as a mismatch. Hashed from random input, never matches.
	dummyHash string
}

func NewAuthService(
	users repository.UserRepository,
	sessions *SessionService,
	lockout *RedisLockoutGuard,
	csrf *security.CSRFBinder,
	bcryptCost int,
) *AuthService {
	dummy, err := security.HashPassword(uuid.NewString(), bcryptCost)
	if err != nil {
		dummy, _ = security.HashPassword(uuid.NewString(), security.DefaultBcryptCost)
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		lockout:    lockout,
		csrf:       csrf,
		bcryptCost: bcryptCost,
		verify:     security.VerifyPassword,
		dummyHash:  dummy,
	}
}

// Login authenticates an administrator. While the account is locked the
// password is never verified, bounding both hashing cost and attacker
// feedback. Unknown account and wrong password are the same error, and both
// paths run a full bcrypt verification so response time does not reveal
// whether the email exists.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	if locked, err := s.lockout.Check(ctx, email); err != nil {
		return nil, err
	} else if locked > 0 {
		observability.RecordAuthLogin(ctx, "locked")
		return nil, ErrAccountLocked
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verify(password, s.dummyHash)
			return nil, s.noteFailure(ctx, email)
		}
		return nil, err
	}
	// Verify before the status check so a disabled account costs the same
	// as an active one.
	ok := s.verify(password, user.PasswordHash)
	if user.Status != domain.UserStatusActive || !ok {
		return nil, s.noteFailure(ctx, email)
	}

	if err := s.lockout.Reset(ctx, email); err != nil {
		return nil, err
	}

	raw, sess, err := s.sessions.Create(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{
		User:         user,
		Session:      sess,
		SessionToken: raw,
		CSRFToken:    s.csrf.DeriveToken(sess.TokenHash),
	}, nil
}

// Logout revokes the presented session. Idempotent from the client's view:
// an already-dead session still clears cookies upstream.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	err := s.sessions.RevokeByToken(ctx, rawToken, domain.RevokeReasonUserLogout)
	if err != nil && !errors.Is(err, ErrSessionInvalid) {
		return err
	}
	return nil
}

// ChangePassword verifies the current password, writes the new hash, revokes
// every session of the user (the current one included) and mints a fresh
// session. Rotation also invalidates all previously derived CSRF tokens.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword, ip, userAgent string) (*LoginResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.verify(currentPassword, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	hash, err := security.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return nil, err
	}
	revoked, err := s.sessions.RevokeAll(ctx, userID, domain.RevokeReasonPasswordChanged)
	if err != nil {
		return nil, err
	}
	observability.AuditEvent("password_changed", "user_id", userID, "sessions_revoked", revoked)

	raw, sess, err := s.sessions.Create(ctx, userID, ip, userAgent)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	return &LoginResult{
		User:         user,
		Session:      sess,
		SessionToken: raw,
		CSRFToken:    s.csrf.DeriveToken(sess.TokenHash),
	}, nil
}

func (s *AuthService) noteFailure(ctx context.Context, email string) error {
	locked, err := s.lockout.RegisterFailure(ctx, email)
	if err != nil {
		return err
	}
	if locked > 0 {
		observability.RecordLockoutEvent(ctx, "trip")
		observability.AuditEvent("account_locked", "identity", email, "lock_duration", locked.Truncate(time.Second).String())
		observability.RecordAuthLogin(ctx, "locked")
		return ErrAccountLocked
	}
	observability.RecordAuthLogin(ctx, "failure")
	return ErrInvalidCredentials
}
