package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pixshift/gateway/security/filescan"
	"github.com/pixshift/gateway/security/ratelimit"
	"github.com/pixshift/gateway/security/validation"
)

/* Guard orchestrates the rate limiter, input validator, file scanner
 * and suspicious-activity detector into a single allow/deny decision
 * per request. Checks run in a fixed order and short-circuit on the
 * first denial; warnings from passing checks accumulate for the
 * caller to log, never to block on.
 */
type Guard struct {
	limiter   ratelimit.Limiter
	validator *validation.Validator
	scanner   *filescan.Scanner
	detector  *Detector
	log       *slog.Logger
}

// New wires a Guard from its collaborators.
func New(limiter ratelimit.Limiter, v *validation.Validator, s *filescan.Scanner, d *Detector, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{limiter: limiter, validator: v, scanner: s, detector: d, log: log}
}

// Decision is the outcome of authorizing one request.
type Decision struct {
	Allowed bool
	Status  int               // HTTP status on denial
	Reason  string            // denial reason, "" when allowed
	Headers map[string]string // extra response headers (rate limit hints)

	Warnings   []string
	ClientAddr string
	UserKey    string // opaque credential identity, "" when anonymous

	// Params is the sanitized JSON body (or multipart params part).
	Params map[string]any
	// Files are the scanned multipart file parts.
	Files []File
	// Threats are every scanner finding, blocking or not, for
	// observability.
	Threats []filescan.Threat
}

// File is one multipart file part that passed scanning.
type File struct {
	Filename string
	MIME     string
	Data     []byte
	Scan     filescan.ScanResult
}

func allowed(d Decision) Decision {
	d.Allowed = true
	return d
}

func (g *Guard) deny(d Decision, p Policy, status int, reason string) Decision {
	d.Allowed = false
	d.Status = status
	d.Reason = reason
	g.log.Warn("request denied",
		"endpoint", p.Endpoint,
		"status", status,
		"reason", reason,
		"client_addr", d.ClientAddr,
		"user", d.UserKey,
	)
	return d
}

// Authorize runs the ordered security checks for one request.
func (g *Guard) Authorize(r *http.Request, p Policy) Decision {
	d := Decision{}

	// 1. Method allow-list
	if !p.methodAllowed(r.Method) {
		return g.deny(d, p, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}

	// 2. Request size bound
	maxSize := p.MaxRequestSize
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}
	if r.ContentLength > maxSize {
		return g.deny(d, p, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request of %d bytes exceeds limit of %d", r.ContentLength, maxSize))
	}

	// 3. Client address extraction
	d.ClientAddr = clientAddr(r)

	// 4. Authentication presence
	d.UserKey = bearerToken(r)
	if p.RequireAuth && d.UserKey == "" {
		return g.deny(d, p, http.StatusUnauthorized, "missing credentials")
	}

	// 5. Rate limiting
	if p.EnableRateLimit && g.limiter != nil {
		identity := ratelimit.Identity{UserID: d.UserKey, Addr: d.ClientAddr}
		decision, err := g.limiter.Check(r.Context(), identity, p.Bucket())
		if err != nil {
			// a broken limiter must not take the API down
			g.log.Error("rate limiter unavailable", "endpoint", p.Endpoint, "error", err)
			d.Warnings = append(d.Warnings, "rate limiting unavailable")
		} else {
			d.Headers = rateLimitHeaders(decision)
			if !decision.Allowed {
				return g.deny(d, p, http.StatusTooManyRequests, decision.Reason)
			}
		}
	}

	// 6. Input validation: headers, query parameters, JSON body
	if p.EnableInputValidation {
		if denied, out := g.validateInput(r, p, d, maxSize); denied {
			return out
		} else {
			d = out
		}
	}

	// 7. Custom hook
	if p.Custom != nil {
		if err := p.Custom(r); err != nil {
			return g.deny(d, p, http.StatusBadRequest, err.Error())
		}
	}

	// 8. Suspicious-activity detection
	if p.EnableSuspiciousActivity && g.detector != nil {
		for _, finding := range g.detector.Inspect(r) {
			if finding.Severity >= filescan.High {
				return g.deny(d, p, http.StatusForbidden, finding.Description)
			}
			g.log.Info("suspicious activity",
				"endpoint", p.Endpoint,
				"severity", finding.Severity.String(),
				"finding", finding.Description,
				"client_addr", d.ClientAddr,
				"user", d.UserKey,
			)
			d.Warnings = append(d.Warnings, finding.Description)
		}
	}

	return allowed(d)
}

/* validateInput covers headers, query parameters and the body. The
 * bool result reports a denial; the Decision carries either the
 * denial or the accumulated sanitized state.
 */
func (g *Guard) validateInput(r *http.Request, p Policy, d Decision, maxSize int64) (bool, Decision) {
	// Headers that reach application logic get the injection sweep.
	for _, name := range []string{"User-Agent", "Content-Type", "X-Request-ID"} {
		if value := r.Header.Get(name); value != "" {
			res := g.validator.String(value, name, validation.StringOptions{MaxLength: 2048})
			if !res.Valid {
				return true, g.deny(d, p, http.StatusBadRequest, res.Errors[0])
			}
			d.Warnings = append(d.Warnings, res.Warnings...)
		}
	}

	for key, values := range r.URL.Query() {
		for _, value := range values {
			res := g.validator.String(value, key, validation.StringOptions{MaxLength: 2048})
			if !res.Valid {
				return true, g.deny(d, p, http.StatusBadRequest, res.Errors[0])
			}
			d.Warnings = append(d.Warnings, res.Warnings...)
		}
	}

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case contentType == "application/json":
		return g.validateJSONBody(r, p, d, maxSize)
	case contentType == "multipart/form-data":
		return g.validateMultipart(r, p, d, maxSize)
	}
	return false, d
}

func (g *Guard) validateJSONBody(r *http.Request, p Policy, d Decision, maxSize int64) (bool, Decision) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
	if err != nil {
		return true, g.deny(d, p, http.StatusBadRequest, "failed to read request body")
	}
	if int64(len(body)) > maxSize {
		return true, g.deny(d, p, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request exceeds limit of %d bytes", maxSize))
	}
	if len(body) == 0 {
		return false, d
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return true, g.deny(d, p, http.StatusBadRequest, "malformed JSON body")
	}

	return g.applyBodySchema(p, d, parsed)
}

func (g *Guard) applyBodySchema(p Policy, d Decision, parsed map[string]any) (bool, Decision) {
	if p.ValidateBody == nil {
		objRes := g.validator.JSONObject(parsed, "body", validation.ObjectOptions{})
		if !objRes.Valid {
			return true, g.deny(d, p, http.StatusBadRequest, objRes.Errors[0])
		}
		d.Params, _ = objRes.Sanitized.(map[string]any)
		d.Warnings = append(d.Warnings, objRes.Warnings...)
		return false, d
	}

	res := p.ValidateBody(g.validator, parsed)
	if !res.Valid {
		return true, g.deny(d, p, http.StatusBadRequest, res.Errors[0])
	}
	d.Warnings = append(d.Warnings, res.Warnings...)
	d.Params = map[string]any{"request": res.Sanitized}
	return false, d
}

func (g *Guard) validateMultipart(r *http.Request, p Policy, d Decision, maxSize int64) (bool, Decision) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return true, g.deny(d, p, http.StatusBadRequest, "malformed multipart body")
	}

	// optional JSON parameters part
	if raw := r.FormValue("params"); raw != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return true, g.deny(d, p, http.StatusBadRequest, "malformed JSON in params part")
		}
		if denied, out := g.applyBodySchema(p, d, parsed); denied {
			return true, out
		} else {
			d = out
		}
	}

	if r.MultipartForm == nil || g.scanner == nil {
		return false, d
	}

	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			part, err := fh.Open()
			if err != nil {
				return true, g.deny(d, p, http.StatusBadRequest, fmt.Sprintf("unreadable file part %q", field))
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				return true, g.deny(d, p, http.StatusBadRequest, fmt.Sprintf("unreadable file part %q", field))
			}

			declaredMIME := fh.Header.Get("Content-Type")
			metaRes := g.validator.File(validation.FileMeta{
				Filename:  fh.Filename,
				SizeBytes: int64(len(data)),
				MIME:      declaredMIME,
			}, field, validation.FileOptions{
				MaxSizeBytes: p.MaxFileSize,
				AllowedMIME:  p.AllowedMIME,
			})
			if !metaRes.Valid {
				return true, g.deny(d, p, http.StatusBadRequest, metaRes.Errors[0])
			}
			d.Warnings = append(d.Warnings, metaRes.Warnings...)

			scan := g.scanner.Scan(data, declaredMIME, fh.Filename)
			d.Threats = append(d.Threats, scan.Threats...)
			if !scan.Safe {
				blocking := scan.Blocking()
				g.logThreats(p, d, fh.Filename, blocking)
				return true, g.deny(d, p, http.StatusBadRequest,
					fmt.Sprintf("file %q rejected: %s", fh.Filename, blocking[0].Description))
			}
			for _, th := range scan.Threats {
				d.Warnings = append(d.Warnings, fmt.Sprintf("file %q: %s (%s)", fh.Filename, th.Description, th.Severity))
			}
			d.Warnings = append(d.Warnings, scan.Warnings...)

			d.Files = append(d.Files, File{
				Filename: fh.Filename,
				MIME:     declaredMIME,
				Data:     data,
				Scan:     scan,
			})
		}
	}
	return false, d
}

func (g *Guard) logThreats(p Policy, d Decision, filename string, threats []filescan.Threat) {
	for _, th := range threats {
		g.log.Warn("file threat detected",
			"endpoint", p.Endpoint,
			"filename", filename,
			"kind", th.Kind.String(),
			"severity", th.Severity.String(),
			"description", th.Description,
			"client_addr", d.ClientAddr,
			"user", d.UserKey,
		)
	}
}

/* clientAddr picks the first valid address from the trusted
 * forwarding header, falling back to the direct connection.
 */
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for _, part := range strings.Split(fwd, ",") {
			candidate := strings.TrimSpace(part)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// bearerToken extracts the opaque credential from the Authorization
// header, "" when absent.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func rateLimitHeaders(decision ratelimit.Decision) map[string]string {
	headers := map[string]string{
		"X-RateLimit-Remaining": strconv.Itoa(decision.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(decision.ResetAt.Unix(), 10),
	}
	if !decision.Allowed && decision.BackoffSeconds > 0 {
		headers["Retry-After"] = strconv.Itoa(decision.BackoffSeconds)
	}
	return headers
}
