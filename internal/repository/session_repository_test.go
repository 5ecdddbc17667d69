package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commercegate/admin-security/internal/domain"
)

func TestSessionRepositoryListActiveByUserID(t *testing.T) {
	repo := newSessionRepoForTest(t)
	ctx := context.Background()

	active := &domain.Session{
		PublicID:  "pub-1",
		UserID:    1,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(2 * time.Hour),
	}
	revokedAt := time.Now().UTC()
	revoked := &domain.Session{
		PublicID:      "pub-2",
		UserID:        1,
		TokenHash:     "h2",
		ExpiresAt:     time.Now().Add(2 * time.Hour),
		RevokedAt:     &revokedAt,
		RevokedReason: strPtr(domain.RevokeReasonUserLogout),
	}
	expired := &domain.Session{
		PublicID:  "pub-3",
		UserID:    1,
		TokenHash: "h3",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	otherUser := &domain.Session{
		PublicID:  "pub-4",
		UserID:    2,
		TokenHash: "h4",
		ExpiresAt: time.Now().Add(2 * time.Hour),
	}

	for _, s := range []*domain.Session{active, revoked, expired, otherUser} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.PublicID, err)
		}
	}

	sessions, err := repo.ListActiveByUserID(ctx, 1)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(sessions))
	}
	if sessions[0].TokenHash != "h1" {
		t.Fatalf("unexpected active session: %+v", sessions[0])
	}
}

func TestSessionRepositoryFindByHash(t *testing.T) {
	repo := newSessionRepoForTest(t)
	ctx := context.Background()

	s := &domain.Session{
		PublicID:  "pub-1",
		UserID:    1,
		TokenHash: "findable",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByHash(ctx, "findable")
	if err != nil {
		t.Fatalf("find by hash: %v", err)
	}
	if found.ID != s.ID {
		t.Fatalf("found wrong session: %+v", found)
	}

	if _, err := repo.FindByHash(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryRevokeByIDIsIdempotent(t *testing.T) {
	repo := newSessionRepoForTest(t)
	ctx := context.Background()

	s := &domain.Session{
		PublicID:  "pub-1",
		UserID:    1,
		TokenHash: "h1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	changed, err := repo.RevokeByID(ctx, s.ID, domain.RevokeReasonUserTerminated)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true on first revoke")
	}

	changed, err = repo.RevokeByID(ctx, s.ID, domain.RevokeReasonUserTerminated)
	if err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if changed {
		t.Fatal("expected changed=false on already revoked session")
	}

	found, err := repo.FindByHash(ctx, "h1")
	if err != nil {
		t.Fatalf("find revoked: %v", err)
	}
	if found.RevokedAt == nil || found.RevokedReason == nil || *found.RevokedReason != domain.RevokeReasonUserTerminated {
		t.Fatalf("revocation not persisted: %+v", found)
	}
}

func TestSessionRepositoryRevokeByUserIDRevokesAllLive(t *testing.T) {
	repo := newSessionRepoForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s := &domain.Session{
			PublicID:  fmt.Sprintf("u1-%d", i),
			UserID:    1,
			TokenHash: fmt.Sprintf("u1h%d", i),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := &domain.Session{
		PublicID:  "u2-0",
		UserID:    2,
		TokenHash: "u2h0",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	count, err := repo.RevokeByUserID(ctx, 1, domain.RevokeReasonPasswordChanged)
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 revoked, got %d", count)
	}

	remaining, err := repo.ListActiveByUserID(ctx, 1)
	if err != nil {
		t.Fatalf("list after revoke: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no active sessions for user 1, got %d", len(remaining))
	}

	untouched, err := repo.ListActiveByUserID(ctx, 2)
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if len(untouched) != 1 {
		t.Fatalf("other user's session should survive, got %d", len(untouched))
	}
}

func TestSessionRepositoryRevokeByUserIDExceptHashSparesCurrent(t *testing.T) {
	repo := newSessionRepoForTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s := &domain.Session{
			PublicID:  fmt.Sprintf("u1-%d", i),
			UserID:    1,
			TokenHash: fmt.Sprintf("u1h%d", i),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := &domain.Session{
		PublicID:  "u2-0",
		UserID:    2,
		TokenHash: "u2h0",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	count, err := repo.RevokeByUserIDExceptHash(ctx, 1, "u1h1", domain.RevokeReasonUserTerminated)
	if err != nil {
		t.Fatalf("revoke others: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 revoked, got %d", count)
	}

	remaining, err := repo.ListActiveByUserID(ctx, 1)
	if err != nil {
		t.Fatalf("list after revoke: %v", err)
	}
	if len(remaining) != 1 || remaining[0].TokenHash != "u1h1" {
		t.Fatalf("only the kept session should survive, got %+v", remaining)
	}

	untouched, err := repo.ListActiveByUserID(ctx, 2)
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if len(untouched) != 1 {
		t.Fatalf("other user's session should survive, got %d", len(untouched))
	}
}

func TestSessionRepositoryPurgeExpired(t *testing.T) {
	repo := newSessionRepoForTest(t)
	ctx := context.Background()

	old := &domain.Session{
		PublicID:  "old",
		UserID:    1,
		TokenHash: "old",
		ExpiresAt: time.Now().Add(-60 * 24 * time.Hour),
	}
	live := &domain.Session{
		PublicID:  "live",
		UserID:    1,
		TokenHash: "live",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if err := repo.Create(ctx, live); err != nil {
		t.Fatalf("create live: %v", err)
	}

	purged, err := repo.PurgeExpired(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if _, err := repo.FindByHash(ctx, "live"); err != nil {
		t.Fatalf("live session should survive purge: %v", err)
	}
}

func newSessionRepoForTest(t *testing.T) SessionRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}); err != nil {
		t.Fatalf("migrate session: %v", err)
	}
	return NewSessionRepository(db)
}

func strPtr(v string) *string { return &v }
