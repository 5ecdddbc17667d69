package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/repository"
	"github.com/commercegate/admin-security/internal/security"
	"github.com/commercegate/admin-security/internal/service"
)

func newSessionServiceForTest(t *testing.T) *service.SessionService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return service.NewSessionService(repository.NewSessionRepository(db), "test-pepper", time.Hour)
}

func TestSessionAuthAcceptsValidCookie(t *testing.T) {
	sessions := newSessionServiceForTest(t)
	raw, created, err := sessions.Create(context.Background(), 7, "", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var seenUserID uint
	var seenRaw string
	h := SessionAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatal("session missing from context")
		}
		seenUserID = sess.UserID
		seenRaw, _ = RawTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: raw})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seenUserID != created.UserID {
		t.Fatalf("context session user=%d want %d", seenUserID, created.UserID)
	}
	if seenRaw != raw {
		t.Fatal("raw token missing from context")
	}
}

func TestSessionAuthRejectsMissingAndBogusCookies(t *testing.T) {
	sessions := newSessionServiceForTest(t)
	h := SessionAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// No cookie at all.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing cookie: expected 401, got %d", rr.Code)
	}

	// A cookie that never matched any session.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "bogus"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bogus cookie: expected 401, got %d", rr.Code)
	}
}

func TestSessionAuthRejectsRevokedSession(t *testing.T) {
	sessions := newSessionServiceForTest(t)
	ctx := context.Background()
	raw, _, err := sessions.Create(ctx, 7, "", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := sessions.RevokeByToken(ctx, raw, domain.RevokeReasonUserLogout); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	h := SessionAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: raw})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session: expected 401, got %d", rr.Code)
	}
}
