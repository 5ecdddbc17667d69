package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commercegate/admin-security/internal/domain"
)

func TestResetTokenIssueExclusiveRevokesPriorActive(t *testing.T) {
	repo, db := newResetTokenRepoForTest(t)
	ctx := context.Background()

	first := &domain.ResetToken{
		PublicID:  "rt-1",
		UserID:    1,
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.IssueExclusive(ctx, first); err != nil {
		t.Fatalf("issue first: %v", err)
	}

	second := &domain.ResetToken{
		PublicID:  "rt-2",
		UserID:    1,
		TokenHash: "hash-2",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.IssueExclusive(ctx, second); err != nil {
		t.Fatalf("issue second: %v", err)
	}

	var stored domain.ResetToken
	if err := db.Where("token_hash = ?", "hash-1").First(&stored).Error; err != nil {
		t.Fatalf("load first: %v", err)
	}
	if stored.RevokedAt == nil || stored.RevokedReason == nil || *stored.RevokedReason != domain.ResetRevokeReasonNewRequest {
		t.Fatalf("first token should be revoked by the second issue: %+v", stored)
	}

	if _, err := repo.ConsumeByHash(ctx, "hash-1"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("superseded token must not be consumable, got %v", err)
	}
	if _, err := repo.ConsumeByHash(ctx, "hash-2"); err != nil {
		t.Fatalf("latest token should consume: %v", err)
	}
}

func TestResetTokenConsumeByHashIsSingleUse(t *testing.T) {
	repo, _ := newResetTokenRepoForTest(t)
	ctx := context.Background()

	token := &domain.ResetToken{
		PublicID:  "rt-1",
		UserID:    1,
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.IssueExclusive(ctx, token); err != nil {
		t.Fatalf("issue: %v", err)
	}

	consumed, err := repo.ConsumeByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if consumed.UsedAt == nil {
		t.Fatal("consumed token should carry used_at")
	}

	if _, err := repo.ConsumeByHash(ctx, "hash-1"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("second consume must fail, got %v", err)
	}
}

func TestResetTokenConsumeByHashSingleWinnerUnderConcurrency(t *testing.T) {
	repo, db := newResetTokenRepoForTest(t)
	ctx := context.Background()

	// One connection keeps SQLite from answering racers with SQLITE_BUSY;
	// the winner is still decided by the conditional UPDATE alone.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	token := &domain.ResetToken{
		PublicID:  "rt-1",
		UserID:    1,
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.IssueExclusive(ctx, token); err != nil {
		t.Fatalf("issue: %v", err)
	}

	const racers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		misses int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ConsumeByHash(ctx, "hash-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrResetTokenNotFound):
				misses++
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || misses != racers-1 {
		t.Fatalf("expected exactly one winner, got wins=%d misses=%d", wins, misses)
	}
}

func TestResetTokenConsumeByHashRejectsExpired(t *testing.T) {
	repo, _ := newResetTokenRepoForTest(t)
	ctx := context.Background()

	token := &domain.ResetToken{
		PublicID:  "rt-1",
		UserID:    1,
		TokenHash: "hash-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := repo.IssueExclusive(ctx, token); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := repo.ConsumeByHash(ctx, "hash-1"); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expired token must not consume, got %v", err)
	}
}

func TestResetTokenPurgeExpired(t *testing.T) {
	repo, _ := newResetTokenRepoForTest(t)
	ctx := context.Background()

	stale := &domain.ResetToken{
		PublicID:  "rt-old",
		UserID:    1,
		TokenHash: "old",
		ExpiresAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := &domain.ResetToken{
		PublicID:  "rt-new",
		UserID:    1,
		TokenHash: "new",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.IssueExclusive(ctx, stale); err != nil {
		t.Fatalf("issue stale: %v", err)
	}
	if err := repo.IssueExclusive(ctx, fresh); err != nil {
		t.Fatalf("issue fresh: %v", err)
	}

	purged, err := repo.PurgeExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
}

func newResetTokenRepoForTest(t *testing.T) (ResetTokenRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ResetToken{}); err != nil {
		t.Fatalf("migrate reset token: %v", err)
	}
	return NewResetTokenRepository(db), db
}
