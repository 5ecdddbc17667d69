package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commercegate/admin-security/internal/security"
)

// Config drives a smoke pass against a running instance.
type Config struct {
	BaseURL  string
	Email    string
	Password string
}

// Run exercises a live deployment end to end: readiness, lockout on a
// throwaway identity, CSRF double-submit enforcement, and the
// forgot-password throttle. The real admin account in cfg is only ever
// presented its correct password.
func Run(ctx context.Context, cfg Config) ([]string, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{Timeout: 15 * time.Second, Jar: jar}
	var details []string

	status, _, err := request(ctx, client, http.MethodGet, base+"/health/ready", nil, nil)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("readiness probe returned %d", status)
	}
	details = append(details, "readiness: ok")

	if err := checkLockout(ctx, client, base); err != nil {
		return details, err
	}
	details = append(details, "lockout: throwaway identity locked after repeated failures")

	if err := checkForgotThrottle(ctx, client, base); err != nil {
		return details, err
	}
	details = append(details, "forgot-password throttle: ok")

	if cfg.Email != "" && cfg.Password != "" {
		csrfDetails, err := checkCSRF(ctx, client, base, cfg.Email, cfg.Password)
		details = append(details, csrfDetails...)
		if err != nil {
			return details, err
		}
	} else {
		details = append(details, "csrf: skipped (no credentials supplied)")
	}

	return details, nil
}

func checkLockout(ctx context.Context, client *http.Client, base string) error {
	email := "smoke-" + uuid.NewString() + "@example.invalid"
	var locked bool
	for i := 0; i < 8; i++ {
		body := map[string]string{"email": email, "password": "wrong-password"}
		status, _, err := requestJSON(ctx, client, http.MethodPost, base+"/api/v1/auth/login", body, nil)
		if err != nil {
			return err
		}
		switch status {
		case http.StatusUnauthorized:
			continue
		case http.StatusLocked:
			locked = true
		case http.StatusTooManyRequests:
			// The auth throttle can fire before the lockout threshold.
			time.Sleep(2 * time.Second)
			continue
		default:
			return fmt.Errorf("unexpected login status %d", status)
		}
		if locked {
			break
		}
	}
	if !locked {
		return fmt.Errorf("identity never locked after repeated failures")
	}
	return nil
}

func checkForgotThrottle(ctx context.Context, client *http.Client, base string) error {
	email := "smoke-" + uuid.NewString() + "@example.invalid"
	for i := 0; i < 10; i++ {
		body := map[string]string{"email": email}
		status, _, err := requestJSON(ctx, client, http.MethodPost, base+"/api/v1/auth/password/forgot", body, nil)
		if err != nil {
			return err
		}
		if status == http.StatusTooManyRequests {
			return nil
		}
		if status != http.StatusAccepted {
			return fmt.Errorf("unexpected forgot status %d", status)
		}
	}
	return fmt.Errorf("forgot-password endpoint never throttled")
}

func checkCSRF(ctx context.Context, client *http.Client, base, email, password string) ([]string, error) {
	var details []string
	body := map[string]string{"email": email, "password": password}
	status, _, err := requestJSON(ctx, client, http.MethodPost, base+"/api/v1/auth/login", body, nil)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("login returned %d", status)
	}
	details = append(details, "login: ok")

	// The CSRF token arrives in the script-readable cookie.
	baseURL, err := url.Parse(base)
	if err != nil {
		return details, fmt.Errorf("parse base url: %w", err)
	}
	var csrfToken string
	for _, c := range client.Jar.Cookies(baseURL) {
		if c.Name == security.CSRFCookieName {
			csrfToken = c.Value
		}
	}
	if csrfToken == "" {
		return details, fmt.Errorf("login did not set the csrf cookie")
	}

	// Without the header the double submit must fail even though the
	// cookie rides along in the jar.
	status, _, err = requestJSON(ctx, client, http.MethodPost, base+"/api/v1/me/sessions/revoke-others", map[string]string{}, nil)
	if err != nil {
		return details, err
	}
	if status != http.StatusForbidden {
		return details, fmt.Errorf("state change without csrf header returned %d, want 403", status)
	}
	details = append(details, "csrf: request without header rejected")

	headers := map[string]string{security.CSRFHeaderName: csrfToken}
	status, _, err = requestJSON(ctx, client, http.MethodPost, base+"/api/v1/me/sessions/revoke-others", map[string]string{}, headers)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("state change with csrf header returned %d, want 200", status)
	}
	details = append(details, "csrf: request with header accepted")

	status, _, err = requestJSON(ctx, client, http.MethodPost, base+"/api/v1/auth/logout", map[string]string{}, nil)
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("logout returned %d", status)
	}
	details = append(details, "logout: ok")
	return details, nil
}

func requestJSON(ctx context.Context, client *http.Client, method, url string, body any, headers map[string]string) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"
	return request(ctx, client, method, url, bytes.NewReader(payload), headers)
}

func request(ctx context.Context, client *http.Client, method, url string, body io.Reader, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
