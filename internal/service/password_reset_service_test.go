package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/repository"
	"github.com/commercegate/admin-security/internal/security"
)

type captureSink struct {
	tokens []string
	users  []uint
}

func (c *captureSink) DeliverResetToken(_ context.Context, user *domain.User, raw string) error {
	c.users = append(c.users, user.ID)
	c.tokens = append(c.tokens, raw)
	return nil
}

func newResetServiceForTest(t *testing.T) (*PasswordResetService, *SessionService, repository.UserRepository, *captureSink) {
	t.Helper()
	db := newStoreForTest(t, &domain.User{}, &domain.Session{}, &domain.ResetToken{})
	users := repository.NewUserRepository(db)
	tokens := repository.NewResetTokenRepository(db)
	sessions := NewSessionService(repository.NewSessionRepository(db), "test-pepper", time.Hour)
	sink := &captureSink{}
	svc := NewPasswordResetService(users, tokens, sessions, sink, "test-pepper", time.Hour, security.MinBcryptCost)
	return svc, sessions, users, sink
}

func TestPasswordResetRequestUnknownAccountIsQuiet(t *testing.T) {
	svc, _, _, sink := newResetServiceForTest(t)

	if err := svc.Request(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown account must not error: %v", err)
	}
	if len(sink.tokens) != 0 {
		t.Fatal("no token may be issued for an unknown account")
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, sessions, users, sink := newResetServiceForTest(t)
	ctx := context.Background()
	u := seedAdmin(t, users, "admin@example.com", "old password 123", domain.UserStatusActive)

	rawSession, _, err := sessions.Create(ctx, u.ID, "", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := svc.Request(ctx, "admin@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(sink.tokens) != 1 {
		t.Fatalf("expected 1 delivered token, got %d", len(sink.tokens))
	}

	userID, err := svc.Consume(ctx, sink.tokens[0], "new password 456")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if userID != u.ID {
		t.Fatalf("consume returned user %d, want %d", userID, u.ID)
	}

	updated, err := users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !security.VerifyPassword("new password 456", updated.PasswordHash) {
		t.Fatal("new password not in effect")
	}

	// Reset is a credential event: every session dies with it.
	if _, err := sessions.Validate(ctx, rawSession); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("sessions must be revoked on reset, got %v", err)
	}
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	svc, _, users, sink := newResetServiceForTest(t)
	ctx := context.Background()
	seedAdmin(t, users, "admin@example.com", "old password 123", domain.UserStatusActive)

	if err := svc.Request(ctx, "admin@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := svc.Consume(ctx, sink.tokens[0], "new password 456"); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, err := svc.Consume(ctx, sink.tokens[0], "another password 789"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("second consume must fail with ErrResetTokenInvalid, got %v", err)
	}
}

func TestPasswordResetNewRequestInvalidatesPriorToken(t *testing.T) {
	svc, _, users, sink := newResetServiceForTest(t)
	ctx := context.Background()
	seedAdmin(t, users, "admin@example.com", "old password 123", domain.UserStatusActive)

	if err := svc.Request(ctx, "admin@example.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := svc.Request(ctx, "admin@example.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if len(sink.tokens) != 2 {
		t.Fatalf("expected 2 delivered tokens, got %d", len(sink.tokens))
	}

	if _, err := svc.Consume(ctx, sink.tokens[0], "new password 456"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("first token must be dead after reissue, got %v", err)
	}
	if _, err := svc.Consume(ctx, sink.tokens[1], "new password 456"); err != nil {
		t.Fatalf("latest token should consume: %v", err)
	}
}

func TestPasswordResetGarbageTokenRejected(t *testing.T) {
	svc, _, _, _ := newResetServiceForTest(t)

	if _, err := svc.Consume(context.Background(), "not-a-token", "new password 456"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}
