package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commercegate/admin-security/internal/domain"
)

func TestUserRepositoryFindByEmail(t *testing.T) {
	repo := newUserRepoForTest(t)
	ctx := context.Background()

	u := &domain.User{
		Email:        "ops@example.com",
		Name:         "Ops",
		PasswordHash: "hash",
		Status:       domain.UserStatusActive,
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if found.ID != u.ID {
		t.Fatalf("found wrong user: %+v", found)
	}

	if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryUpdatePasswordHash(t *testing.T) {
	repo := newUserRepoForTest(t)
	ctx := context.Background()

	u := &domain.User{
		Email:        "ops@example.com",
		PasswordHash: "old-hash",
		Status:       domain.UserStatusActive,
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdatePasswordHash(ctx, u.ID, "new-hash"); err != nil {
		t.Fatalf("update password hash: %v", err)
	}

	found, err := repo.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if found.PasswordHash != "new-hash" {
		t.Fatalf("password hash not updated: %q", found.PasswordHash)
	}
}

func newUserRepoForTest(t *testing.T) UserRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("migrate user: %v", err)
	}
	return NewUserRepository(db)
}
