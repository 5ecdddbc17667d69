package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/commercegate/admin-security/internal/health"
	"github.com/commercegate/admin-security/internal/http/handler"
	"github.com/commercegate/admin-security/internal/http/middleware"
	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/security"
	"github.com/commercegate/admin-security/internal/service"
)

// RateLimits carries the per-route-class ceilings. The auth and payment
// classes are materially stricter than the general read class.
type RateLimits struct {
	Window     time.Duration
	APIRPM     int
	AuthRPM    int
	PaymentRPM int
	ForgotRPM  int
	Mode       middleware.FailureMode
	Limiter    middleware.Limiter
}

type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	SessionHandler     *handler.SessionHandler
	PaymentHandler     *handler.PaymentHandler
	MaintenanceHandler *handler.MaintenanceHandler
	Sessions           *service.SessionService
	CSRFBinder         *security.CSRFBinder
	ServiceTokens      *security.ServiceTokenManager
	RateLimits         RateLimits
	Readiness          *health.ProbeRunner
	EnableOTelHTTP     bool
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))

	limiter := dep.RateLimits.Limiter
	if limiter == nil {
		limiter = middleware.NewLocalFixedWindowLimiter()
	}
	window := dep.RateLimits.Window
	if window <= 0 {
		window = time.Minute
	}
	newClass := func(scope string, rpm int) func(http.Handler) http.Handler {
		return middleware.NewRateLimiter(limiter,
			middleware.Policy{Limit: rpm, Window: window},
			dep.RateLimits.Mode, scope, nil,
		).Middleware()
	}
	apiLimiter := newClass("api", dep.RateLimits.APIRPM)
	authLimiter := newClass("auth", dep.RateLimits.AuthRPM)
	paymentLimiter := newClass("payment", dep.RateLimits.PaymentRPM)
	forgotLimiter := newClass("forgot", dep.RateLimits.ForgotRPM)

	sessionAuth := middleware.SessionAuth(dep.Sessions)
	csrf := middleware.CSRF(dep.CSRFBinder)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter)

		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			// Logout skips CSRF by policy; see the CSRF middleware notes.
			r.With(sessionAuth).Post("/logout", dep.AuthHandler.Logout)
			r.With(forgotLimiter).Post("/password/forgot", dep.AuthHandler.PasswordForgot)
			r.With(authLimiter).Post("/password/reset", dep.AuthHandler.PasswordReset)
			// Class limiters run before session auth so a throttled request
			// never touches the session store.
			r.With(authLimiter, sessionAuth, csrf).Post("/password/change", dep.AuthHandler.PasswordChange)
		})

		r.With(paymentLimiter, sessionAuth, csrf).Post("/payments", dep.PaymentHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Get("/me", dep.SessionHandler.Me)
			r.Get("/me/sessions", dep.SessionHandler.List)
			r.Get("/orders", dep.PaymentHandler.ListOrders)
			r.Group(func(r chi.Router) {
				r.Use(csrf)
				r.Delete("/me/sessions/{session_id}", dep.SessionHandler.Revoke)
				r.Post("/me/sessions/revoke-others", dep.SessionHandler.RevokeOthers)
			})
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.ServiceTokenAuth(dep.ServiceTokens))
		r.Post("/maintenance/purge", dep.MaintenanceHandler.Purge)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
