package repository

import (
	"context"
	"errors"
	"time"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByHash(ctx context.Context, hash string) (*domain.Session, error)
	FindByPublicIDForUser(ctx context.Context, userID uint, publicID string) (*domain.Session, error)
	ListActiveByUserID(ctx context.Context, userID uint) ([]domain.Session, error)
	TouchLastSeen(ctx context.Context, id uint, at time.Time) error
	RevokeByID(ctx context.Context, id uint, reason string) (bool, error)
	RevokeByUserID(ctx context.Context, userID uint, reason string) (int64, error)
	RevokeByUserIDExceptHash(ctx context.Context, userID uint, keepHash, reason string) (int64, error)
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByHash(ctx context.Context, hash string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "find_by_hash", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "find_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_by_hash", "success")
	return &s, nil
}

func (r *GormSessionRepository) FindByPublicIDForUser(ctx context.Context, userID uint, publicID string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("user_id = ? AND public_id = ?", userID, publicID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "find_by_public_id", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "find_by_public_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "find_by_public_id", "success")
	return &s, nil
}

func (r *GormSessionRepository) ListActiveByUserID(ctx context.Context, userID uint) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_active_by_user_id", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_active_by_user_id", "success")
	return sessions, nil
}

// TouchLastSeen refreshes activity tracking. Best-effort from the caller's
// point of view; a failed touch never fails validation.
func (r *GormSessionRepository) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ?", id).
		Update("last_seen_at", at).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "touch_last_seen", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "touch_last_seen", "success")
	return nil
}

// RevokeByID marks one session revoked. The conditional WHERE makes the
// revoke idempotent: a second call reports changed=false.
func (r *GormSessionRepository) RevokeByID(ctx context.Context, id uint, reason string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "revoke_by_id", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "revoke_by_id", "success")
	return res.RowsAffected > 0, nil
}

// RevokeByUserID revokes every live session of a user in a single UPDATE.
// A session committed concurrently either lands before the statement and is
// revoked, or after it and stays active; nothing is silently skipped.
func (r *GormSessionRepository) RevokeByUserID(ctx context.Context, userID uint, reason string) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "revoke_by_user_id", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "revoke_by_user_id", "success")
	return res.RowsAffected, nil
}

// RevokeByUserIDExceptHash revokes every live session of a user except the
// one matching keepHash, in a single UPDATE. Same atomicity as
// RevokeByUserID: no per-row round trips, no window for a listed session to
// slip through unrevoked.
func (r *GormSessionRepository) RevokeByUserIDExceptHash(ctx context.Context, userID uint, keepHash, reason string) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL AND token_hash <> ?", userID, keepHash).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "revoke_by_user_id_except", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "revoke_by_user_id_except", "success")
	return res.RowsAffected, nil
}

// PurgeExpired deletes rows whose expiry passed the retention window.
// Driven by the external sweeper through the maintenance endpoint; Validate
// never depends on it having run.
func (r *GormSessionRepository) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := r.db.WithContext(ctx).Where("expires_at <= ?", cutoff).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "purge_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "purge_expired", "success")
	return res.RowsAffected, nil
}
