package repository

import (
	"context"
	"errors"
	"time"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/observability"

	"gorm.io/gorm"
)

var ErrResetTokenNotFound = errors.New("reset token not found")

type ResetTokenRepository interface {
	IssueExclusive(ctx context.Context, t *domain.ResetToken) error
	ConsumeByHash(ctx context.Context, hash string) (*domain.ResetToken, error)
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

type GormResetTokenRepository struct{ db *gorm.DB }

func NewResetTokenRepository(db *gorm.DB) ResetTokenRepository {
	return &GormResetTokenRepository{db: db}
}

// IssueExclusive inserts a new token after revoking every token still active
// for the same user, in one transaction. Keeps the at-most-one-active
// invariant even when two issue calls race: both revocation UPDATEs are
// conditional, so the later transaction revokes the earlier insert.
func (r *GormResetTokenRepository) IssueExclusive(ctx context.Context, t *domain.ResetToken) error {
	now := time.Now().UTC()
	reason := domain.ResetRevokeReasonNewRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.ResetToken{}).
			Where("user_id = ? AND used_at IS NULL AND revoked_at IS NULL", t.UserID).
			Updates(map[string]any{"revoked_at": now, "revoked_reason": reason}).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "reset_token", "issue_exclusive", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "reset_token", "issue_exclusive", "success")
	return nil
}

// ConsumeByHash atomically claims the token. The conditional UPDATE is the
// single-consumption guarantee: of two concurrent consumers exactly one sees
// RowsAffected == 1, the other gets ErrResetTokenNotFound. Not-found,
// expired, used, and revoked are indistinguishable to the caller.
func (r *GormResetTokenRepository) ConsumeByHash(ctx context.Context, hash string) (*domain.ResetToken, error) {
	now := time.Now().UTC()
	reason := domain.ResetRevokeReasonUsed
	res := r.db.WithContext(ctx).Model(&domain.ResetToken{}).
		Where("token_hash = ? AND used_at IS NULL AND revoked_at IS NULL AND expires_at > ?", hash, now).
		Updates(map[string]any{"used_at": now, "revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "reset_token", "consume_by_hash", "error")
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		observability.RecordRepositoryOperation(ctx, "reset_token", "consume_by_hash", "not_found")
		return nil, ErrResetTokenNotFound
	}
	var t domain.ResetToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "reset_token", "consume_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "reset_token", "consume_by_hash", "success")
	return &t, nil
}

func (r *GormResetTokenRepository) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := r.db.WithContext(ctx).Where("expires_at <= ?", cutoff).Delete(&domain.ResetToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "reset_token", "purge_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "reset_token", "purge_expired", "success")
	return res.RowsAffected, nil
}
