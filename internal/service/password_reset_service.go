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

// ResetTokenSink receives the raw reset token for out-of-band delivery.
// The mail pipeline lives outside this subsystem; in tests it is a capture.
type ResetTokenSink interface {
	DeliverResetToken(ctx context.Context, user *domain.User, rawToken string) error
}

// PasswordResetService issues and consumes single-use reset tokens.
type PasswordResetService struct {
	users      repository.UserRepository
	tokens     repository.ResetTokenRepository
	sessions   *SessionService
	sink       ResetTokenSink
	pepper     string
	ttl        time.Duration
	bcryptCost int
}

func NewPasswordResetService(
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	sessions *SessionService,
	sink ResetTokenSink,
	pepper string,
	ttl time.Duration,
	bcryptCost int,
) *PasswordResetService {
	return &PasswordResetService{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		sink:       sink,
		pepper:     pepper,
		ttl:        ttl,
		bcryptCost: bcryptCost,
	}
}

// Request issues a reset token for the account behind email, revoking any
// prior active token. Unknown accounts return nil as well: the caller's
// response must be identical either way (enumeration defense), so the only
// observable difference is an email arriving or not.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordResetTokenEvent(ctx, "request", "unknown_account")
			return nil
		}
		return err
	}

	raw, err := security.NewRawToken()
	if err != nil {
		return err
	}
	token := &domain.ResetToken{
		PublicID:  uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw, s.pepper),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	if err := s.tokens.IssueExclusive(ctx, token); err != nil {
		observability.RecordResetTokenEvent(ctx, "issue", "error")
		return err
	}
	observability.RecordResetTokenEvent(ctx, "issue", "success")
	observability.AuditEvent("reset_token_issued", "user_id", user.ID, "token_id", token.PublicID)

	if s.sink != nil {
		if err := s.sink.DeliverResetToken(ctx, user, raw); err != nil {
			return err
		}
	}
	return nil
}

// Consume redeems a raw reset token, sets the new password, and revokes all
// of the user's sessions. The conditional update in the repository ensures a
// token is consumed at most once, concurrent callers included.
func (s *PasswordResetService) Consume(ctx context.Context, rawToken, newPassword string) (uint, error) {
	hash := security.HashToken(rawToken, s.pepper)
	token, err := s.tokens.ConsumeByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			observability.RecordResetTokenEvent(ctx, "consume", "invalid")
			return 0, ErrResetTokenInvalid
		}
		return 0, err
	}

	passwordHash, err := security.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return 0, err
	}
	if err := s.users.UpdatePasswordHash(ctx, token.UserID, passwordHash); err != nil {
		return 0, err
	}
	revoked, err := s.sessions.RevokeAll(ctx, token.UserID, domain.RevokeReasonPasswordChanged)
	if err != nil {
		return 0, err
	}
	observability.RecordResetTokenEvent(ctx, "consume", "success")
	observability.AuditEvent("reset_token_consumed",
		"user_id", token.UserID,
		"token_id", token.PublicID,
		"sessions_revoked", revoked,
	)
	return token.UserID, nil
}
