package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/repository"
	"github.com/commercegate/admin-security/internal/security"
)

type SessionView struct {
	PublicID   string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	UserAgent  string    `json:"user_agent"`
	IP         string    `json:"ip"`
	IsCurrent  bool      `json:"is_current"`
}

// SessionService owns the session lifecycle. Raw tokens leave this package
// exactly once, on creation; every other operation works on hashes.
type SessionService struct {
	sessions repository.SessionRepository
	pepper   string
	ttl      time.Duration
}

func NewSessionService(sessions repository.SessionRepository, pepper string, ttl time.Duration) *SessionService {
	return &SessionService{sessions: sessions, pepper: pepper, ttl: ttl}
}

// Create issues a new session and returns the raw token. The token is not
// retrievable again; storage holds its one-way hash only.
func (s *SessionService) Create(ctx context.Context, userID uint, ip, userAgent string) (string, *domain.Session, error) {
	raw, err := security.NewRawToken()
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		PublicID:   uuid.NewString(),
		UserID:     userID,
		TokenHash:  security.HashToken(raw, s.pepper),
		UserAgent:  userAgent,
		IP:         ip,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", nil, err
	}
	return raw, sess, nil
}

// Validate resolves a raw token to a usable session and refreshes its
// last-activity time. No-match, revoked, and expired all collapse into
// ErrSessionInvalid; only the audit trail keeps the distinction.
func (s *SessionService) Validate(ctx context.Context, rawToken string) (*domain.Session, error) {
	if rawToken == "" {
		observability.RecordSessionValidation(ctx, "missing")
		return nil, ErrSessionInvalid
	}
	hash := security.HashToken(rawToken, s.pepper)
	sess, err := s.sessions.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordSessionValidation(ctx, "not_found")
			return nil, ErrSessionInvalid
		}
		observability.RecordSessionValidation(ctx, "error")
		return nil, err
	}
	now := time.Now()
	if sess.RevokedAt != nil {
		observability.RecordSessionValidation(ctx, "revoked")
		return nil, ErrSessionInvalid
	}
	if !now.Before(sess.ExpiresAt) {
		observability.RecordSessionValidation(ctx, "expired")
		return nil, ErrSessionInvalid
	}
	if err := s.sessions.TouchLastSeen(ctx, sess.ID, now.UTC()); err != nil {
		slog.WarnContext(ctx, "session last-seen refresh failed", "error", err)
	}
	observability.RecordSessionValidation(ctx, "valid")
	return sess, nil
}

// ListActive returns the user's live sessions, flagging the one whose hash
// matches the caller's presented token.
func (s *SessionService) ListActive(ctx context.Context, userID uint, currentTokenHash string) ([]SessionView, error) {
	sessions, err := s.sessions.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, SessionView{
			PublicID:   sess.PublicID,
			CreatedAt:  sess.CreatedAt,
			LastSeenAt: sess.LastSeenAt,
			ExpiresAt:  sess.ExpiresAt,
			UserAgent:  sess.UserAgent,
			IP:         sess.IP,
			IsCurrent:  sess.TokenHash == currentTokenHash,
		})
	}
	return views, nil
}

// Revoke terminates one of the user's sessions by public ID. The current
// session is refused here; logout is the path for that.
func (s *SessionService) Revoke(ctx context.Context, userID uint, publicID, currentTokenHash, reason string) error {
	sess, err := s.sessions.FindByPublicIDForUser(ctx, userID, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionInvalid
		}
		return err
	}
	if sess.TokenHash == currentTokenHash {
		return ErrRevokeCurrentSession
	}
	_, err = s.sessions.RevokeByID(ctx, sess.ID, reason)
	return err
}

// RevokeAll terminates every live session of the user in one atomic update.
func (s *SessionService) RevokeAll(ctx context.Context, userID uint, reason string) (int64, error) {
	return s.sessions.RevokeByUserID(ctx, userID, reason)
}

// RevokeOthers terminates every live session except the caller's current
// one, in one atomic update.
func (s *SessionService) RevokeOthers(ctx context.Context, userID uint, currentTokenHash, reason string) (int64, error) {
	return s.sessions.RevokeByUserIDExceptHash(ctx, userID, currentTokenHash, reason)
}

// RevokeByToken ends the session identified by the presented raw token.
func (s *SessionService) RevokeByToken(ctx context.Context, rawToken, reason string) error {
	hash := security.HashToken(rawToken, s.pepper)
	sess, err := s.sessions.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionInvalid
		}
		return err
	}
	_, err = s.sessions.RevokeByID(ctx, sess.ID, reason)
	return err
}

// TokenHash exposes the hash derivation for callers that compare against
// stored hashes (current-session flagging, CSRF binding).
func (s *SessionService) TokenHash(rawToken string) string {
	return security.HashToken(rawToken, s.pepper)
}
