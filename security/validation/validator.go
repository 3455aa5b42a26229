package validation

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pixshift/gateway/security/patterns"
)

// Default bounds applied when an option is left zero.
const (
	DefaultMaxStringLength = 1000
	DefaultMaxFileSize     = 50 * 1024 * 1024
	DefaultMaxFilenameLen  = 255
	DefaultMaxDepth        = 10
	DefaultMaxKeys         = 100
	DefaultMaxArrayLength  = 100

	maxEmailLocal  = 64
	maxEmailDomain = 253
)

/* Validator performs typed field validation and sanitization. It is
 * stateless apart from the injected pattern tables and logger, so a
 * single instance is safe to share across concurrent requests.
 */
type Validator struct {
	lib *patterns.Library
	log *slog.Logger
}

// New creates a validator backed by the given pattern library.
func New(lib *patterns.Library, log *slog.Logger) *Validator {
	if lib == nil {
		lib = patterns.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Validator{lib: lib, log: log}
}

// StringOptions configures String validation.
type StringOptions struct {
	Required   bool
	MinLength  int
	MaxLength  int // 0 means DefaultMaxStringLength
	Pattern    *regexp.Regexp
	AllowEmpty bool
}

/* String validates and sanitizes a free-text field. Every string runs
 * through the injection sweep; sanitization always happens so the
 * caller gets a usable value even alongside errors.
 */
func (v *Validator) String(raw any, field string, opts StringOptions) Result {
	if raw == nil {
		if opts.Required {
			return newResult("", []string{fmt.Sprintf("%s is required", field)}, nil)
		}
		return ok("")
	}

	s, isString := raw.(string)
	if !isString {
		return newResult("", []string{fmt.Sprintf("%s must be a string", field)}, nil)
	}

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}

	var errs, warnings []string

	trimmed := strings.TrimSpace(s)
	if trimmed == "" && !opts.AllowEmpty {
		if opts.Required {
			errs = append(errs, fmt.Sprintf("%s cannot be empty", field))
		}
	}
	// lengths are characters, not bytes: multi-byte input must not
	// hit the limit early
	length := utf8.RuneCountInString(trimmed)
	if length < opts.MinLength {
		errs = append(errs, fmt.Sprintf("%s must be at least %d characters", field, opts.MinLength))
	}
	if length > maxLen {
		errs = append(errs, fmt.Sprintf("%s exceeds maximum length of %d characters", field, maxLen))
	}
	if opts.Pattern != nil && trimmed != "" && !opts.Pattern.MatchString(trimmed) {
		errs = append(errs, fmt.Sprintf("%s has an invalid format", field))
	}

	injErrs, injWarnings := v.sweepInjection(trimmed, field)
	errs = append(errs, injErrs...)
	warnings = append(warnings, injWarnings...)

	return newResult(v.SanitizeString(s, maxLen), errs, warnings)
}

/* sweepInjection runs the value through every injection pattern.
 * High-risk categories become errors, command-injection matches stay
 * warnings. Every match is logged for audit.
 */
func (v *Validator) sweepInjection(s, field string) (errs, warnings []string) {
	if s == "" {
		return nil, nil
	}
	for _, p := range v.lib.Injection {
		if !p.Pattern.MatchString(s) {
			continue
		}
		msg := fmt.Sprintf("%s contains a suspected %s pattern (%s)", field, p.Category, p.Description)
		if p.Category.HardError() {
			errs = append(errs, msg)
		} else {
			warnings = append(warnings, msg)
		}
		v.log.Warn("injection pattern matched",
			"field", field,
			"category", p.Category.String(),
			"rule", p.Description,
		)
	}
	return errs, warnings
}

/* SanitizeString trims, strips control characters, collapses repeated
 * whitespace, HTML-escapes markup characters and truncates to maxLen.
 * Byte ranges stripped: 0x00-0x08, 0x0B, 0x0C, 0x0E-0x1F, 0x7F. Tab,
 * LF and CR survive as whitespace and then collapse.
 */
func (v *Validator) SanitizeString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r <= 0x08, r == 0x0B, r == 0x0C, r >= 0x0E && r <= 0x1F, r == 0x7F:
			// control character, drop
		default:
			b.WriteRune(r)
		}
	}

	out := collapseWhitespace.ReplaceAllString(b.String(), " ")
	out = strings.TrimSpace(out)
	out = markupEscaper.Replace(out)
	// truncate on a rune boundary so the output stays valid UTF-8
	if utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		out = string(runes[:maxLen])
	}
	return out
}

var collapseWhitespace = regexp.MustCompile(`\s+`)

// markupEscaper neutralizes markup so a sanitized value can never
// carry an executable tag into downstream HTML contexts.
var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// NumberOptions configures Number validation.
type NumberOptions struct {
	Required bool
	Min      *float64
	Max      *float64
	Integer  bool
}

/* Number accepts numeric or numeric-string input. String coercion is
 * legitimate client behavior (form encoding), so it is logged as a
 * warning and never an error.
 */
func (v *Validator) Number(raw any, field string, opts NumberOptions) Result {
	if raw == nil {
		if opts.Required {
			return newResult(nil, []string{fmt.Sprintf("%s is required", field)}, nil)
		}
		return ok(nil)
	}

	var (
		value    float64
		warnings []string
	)

	switch n := raw.(type) {
	case float64:
		value = n
	case float32:
		value = float64(n)
	case int:
		value = float64(n)
	case int64:
		value = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return newResult(nil, []string{fmt.Sprintf("%s must be a number", field)}, nil)
		}
		value = parsed
		warnings = append(warnings, fmt.Sprintf("%s was provided as a string and coerced to a number", field))
	default:
		return newResult(nil, []string{fmt.Sprintf("%s must be a number", field)}, nil)
	}

	var errs []string
	if math.IsNaN(value) || math.IsInf(value, 0) {
		errs = append(errs, fmt.Sprintf("%s must be a finite number", field))
		return newResult(nil, errs, warnings)
	}
	if opts.Integer && value != math.Trunc(value) {
		errs = append(errs, fmt.Sprintf("%s must be an integer", field))
	}
	if opts.Min != nil && value < *opts.Min {
		errs = append(errs, fmt.Sprintf("%s must be at least %v", field, *opts.Min))
	}
	if opts.Max != nil && value > *opts.Max {
		errs = append(errs, fmt.Sprintf("%s must be at most %v", field, *opts.Max))
	}

	return newResult(value, errs, warnings)
}

/* emailPattern is deliberately loose; the RFC-shaped length checks and
 * character rejections below do the real work.
 */
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email validates and normalizes an email address.
func (v *Validator) Email(raw any, field string) Result {
	base := v.String(raw, field, StringOptions{Required: true, MaxLength: 320})
	if !base.Valid {
		return base
	}

	email := strings.ToLower(strings.TrimSpace(base.String()))

	var errs []string
	if strings.ContainsAny(email, `<>"'`) {
		errs = append(errs, fmt.Sprintf("%s contains forbidden characters", field))
	}
	if !emailPattern.MatchString(email) {
		errs = append(errs, fmt.Sprintf("%s is not a valid email address", field))
	} else {
		at := strings.LastIndex(email, "@")
		local, domain := email[:at], email[at+1:]
		if len(local) > maxEmailLocal {
			errs = append(errs, fmt.Sprintf("%s local part exceeds %d characters", field, maxEmailLocal))
		}
		if len(domain) > maxEmailDomain {
			errs = append(errs, fmt.Sprintf("%s domain exceeds %d characters", field, maxEmailDomain))
		}
	}

	return newResult(email, errs, base.Warnings)
}

/* uuidPattern enforces the fixed 36-character shape including the
 * version nibble (1-5) and variant nibble (8,9,a,b).
 */
var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// UUID validates a UUID-shaped identifier, normalized to lower case.
func (v *Validator) UUID(raw any, field string) Result {
	s, isString := raw.(string)
	if !isString {
		return newResult("", []string{fmt.Sprintf("%s must be a string", field)}, nil)
	}

	id := strings.ToLower(strings.TrimSpace(s))
	if !uuidPattern.MatchString(id) {
		return newResult("", []string{fmt.Sprintf("%s is not a valid identifier", field)}, nil)
	}
	return ok(id)
}
