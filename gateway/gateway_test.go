package gateway_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixshift/gateway/gateway"
	"github.com/pixshift/gateway/security/filescan"
	"github.com/pixshift/gateway/security/patterns"
	"github.com/pixshift/gateway/security/ratelimit"
	"github.com/pixshift/gateway/security/validation"
)

/* stubLimiter returns a scripted decision, matching the sealed
 * Limiter contract without a backing store.
 */
type stubLimiter struct {
	decision ratelimit.Decision
	err      error
	calls    int
}

func (s *stubLimiter) Check(_ context.Context, _ ratelimit.Identity, _ string) (ratelimit.Decision, error) {
	s.calls++
	return s.decision, s.err
}

func allowAll() *stubLimiter {
	return &stubLimiter{decision: ratelimit.Decision{Allowed: true, Remaining: 10, ResetAt: time.Now().Add(time.Minute)}}
}

func newGuard(t *testing.T, limiter ratelimit.Limiter) *gateway.Guard {
	t.Helper()
	lib := patterns.Default()
	log := slog.New(slog.DiscardHandler)
	return gateway.New(
		limiter,
		validation.New(lib, log),
		filescan.New(lib, log),
		gateway.NewDetector(lib),
		log,
	)
}

func basePolicy() gateway.Policy {
	return gateway.Policy{
		Endpoint:                 "test",
		AllowedMethods:           []string{http.MethodPost},
		RequireAuth:              false,
		EnableRateLimit:          true,
		EnableInputValidation:    true,
		EnableSuspiciousActivity: true,
	}
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("User-Agent", "pixshift-client/1.0")
	return r
}

func TestAuthorizeOrderedChecks(t *testing.T) {
	t.Run("method not allowed", func(t *testing.T) {
		g := newGuard(t, allowAll())
		r := httptest.NewRequest(http.MethodDelete, "/test", nil)

		d := g.Authorize(r, basePolicy())

		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusMethodNotAllowed, d.Status)
	})

	t.Run("oversized request", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.MaxRequestSize = 10

		r := jsonRequest(`{"note": "a much longer body than ten bytes"}`)
		d := g.Authorize(r, p)

		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusRequestEntityTooLarge, d.Status)
	})

	t.Run("missing credentials", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.RequireAuth = true

		d := g.Authorize(jsonRequest(`{}`), p)

		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusUnauthorized, d.Status)
	})

	t.Run("rate limited with retry headers", func(t *testing.T) {
		limiter := &stubLimiter{decision: ratelimit.Decision{
			Allowed:        false,
			Remaining:      0,
			ResetAt:        time.Now().Add(time.Minute),
			BackoffSeconds: 8,
			Reason:         "rate limit exceeded",
		}}
		g := newGuard(t, limiter)

		d := g.Authorize(jsonRequest(`{}`), basePolicy())

		require.False(t, d.Allowed)
		assert.Equal(t, http.StatusTooManyRequests, d.Status)
		assert.Equal(t, "8", d.Headers["Retry-After"])
		assert.Equal(t, "0", d.Headers["X-RateLimit-Remaining"])
		assert.NotEmpty(t, d.Headers["X-RateLimit-Reset"])
	})

	t.Run("limiter outage degrades to a warning", func(t *testing.T) {
		g := newGuard(t, &stubLimiter{err: errors.New("redis down")})

		d := g.Authorize(jsonRequest(`{}`), basePolicy())

		assert.True(t, d.Allowed)
		assert.Contains(t, d.Warnings, "rate limiting unavailable")
	})

	t.Run("malformed json body", func(t *testing.T) {
		g := newGuard(t, allowAll())

		d := g.Authorize(jsonRequest(`{"broken"`), basePolicy())

		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusBadRequest, d.Status)
	})

	t.Run("injection in query string denied", func(t *testing.T) {
		g := newGuard(t, allowAll())
		r := httptest.NewRequest(http.MethodPost, "/test?q=%3Cscript%3Ealert(1)%3C/script%3E", nil)
		r.Header.Set("User-Agent", "pixshift-client/1.0")

		d := g.Authorize(r, basePolicy())

		assert.False(t, d.Allowed)
		assert.Equal(t, http.StatusBadRequest, d.Status)
	})

	t.Run("body schema failure returns first error", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.ValidateBody = func(v *validation.Validator, body map[string]any) validation.Result {
			return v.ValidateUsageRequest(body)
		}

		d := g.Authorize(jsonRequest(`{"action": "mine_bitcoin"}`), p)

		require.False(t, d.Allowed)
		assert.Equal(t, http.StatusBadRequest, d.Status)
		assert.Contains(t, d.Reason, "action must be one of")
	})

	t.Run("custom hook failure", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.Custom = func(r *http.Request) error {
			return fmt.Errorf("tenant suspended")
		}

		d := g.Authorize(jsonRequest(`{}`), p)

		require.False(t, d.Allowed)
		assert.Equal(t, http.StatusBadRequest, d.Status)
		assert.Equal(t, "tenant suspended", d.Reason)
	})

	t.Run("scanner tool user agent is forbidden", func(t *testing.T) {
		g := newGuard(t, allowAll())
		r := jsonRequest(`{}`)
		r.Header.Set("User-Agent", "sqlmap/1.7.2#stable")

		d := g.Authorize(r, basePolicy())

		require.False(t, d.Allowed)
		assert.Equal(t, http.StatusForbidden, d.Status)
	})

	t.Run("missing user agent is only a warning", func(t *testing.T) {
		g := newGuard(t, allowAll())
		r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "application/json")

		d := g.Authorize(r, basePolicy())

		assert.True(t, d.Allowed)
		assert.NotEmpty(t, d.Warnings)
	})

	t.Run("clean request is allowed", func(t *testing.T) {
		limiter := allowAll()
		g := newGuard(t, limiter)
		r := jsonRequest(`{"note": "hello"}`)
		r.Header.Set("Authorization", "Bearer tok-123")
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

		d := g.Authorize(r, basePolicy())

		require.True(t, d.Allowed, "reason: %s", d.Reason)
		assert.Equal(t, "203.0.113.9", d.ClientAddr)
		assert.Equal(t, "tok-123", d.UserKey)
		assert.Equal(t, 1, limiter.calls)
	})
}

func multipartRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/test", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	r.Header.Set("User-Agent", "pixshift-client/1.0")
	return r
}

func TestAuthorizeMultipart(t *testing.T) {
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

	t.Run("clean upload passes and carries the scan", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.AllowedMIME = []string{"image/png"}

		data := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x20}, 300)...)
		d := g.Authorize(multipartRequest(t, "cat.png", "image/png", data), p)

		require.True(t, d.Allowed, "reason: %s", d.Reason)
		require.Len(t, d.Files, 1)
		assert.Equal(t, "cat.png", d.Files[0].Filename)
		assert.True(t, d.Files[0].Scan.Safe)
	})

	t.Run("executable upload is denied", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.AllowedMIME = []string{"image/png"}

		data := append([]byte{0x4D, 0x5A}, make([]byte, 300)...)
		d := g.Authorize(multipartRequest(t, "cat.png", "image/png", data), p)

		require.False(t, d.Allowed)
		assert.Equal(t, http.StatusBadRequest, d.Status)
		assert.Contains(t, d.Reason, "rejected")
		require.NotEmpty(t, d.Threats, "findings must survive on the decision")
		assert.True(t, d.Threats[0].Severity.Blocking())
	})

	t.Run("disallowed mime is denied before scanning", func(t *testing.T) {
		g := newGuard(t, allowAll())
		p := basePolicy()
		p.AllowedMIME = []string{"image/png"}

		d := g.Authorize(multipartRequest(t, "doc.pdf", "application/pdf", []byte("%PDF-1.4")), p)

		require.False(t, d.Allowed)
		assert.Contains(t, d.Reason, "unsupported type")
	})
}
