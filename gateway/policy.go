package gateway

import (
	"fmt"
	"net/http"

	"github.com/pixshift/gateway/security/validation"
)

/* Policy is the per-endpoint security configuration. One value is
 * captured per request; the gateway holds no request-scoped state of
 * its own, so concurrent requests never share mutable data.
 */
type Policy struct {
	Endpoint string

	AllowedMethods []string
	MaxRequestSize int64 // bytes, 0 means DefaultMaxRequestSize
	RequireAuth    bool

	EnableRateLimit          bool
	RateLimitBucket          string // defaults to Endpoint
	EnableInputValidation    bool
	EnableSuspiciousActivity bool

	// File scanning bounds for multipart endpoints.
	AllowedMIME []string
	MaxFileSize int64

	// ValidateBody validates the parsed JSON body (or the JSON
	// parameters part of a multipart request) against the endpoint's
	// named schema. Nil skips schema validation.
	ValidateBody func(v *validation.Validator, body map[string]any) validation.Result

	// Custom is an optional caller-supplied hook, run after every
	// built-in check.
	Custom func(r *http.Request) error
}

// DefaultMaxRequestSize bounds request bodies when a policy does not
// say otherwise.
const DefaultMaxRequestSize = 60 * 1024 * 1024

// Validate checks the policy itself for wiring mistakes.
func (p Policy) Validate() error {
	if p.Endpoint == "" {
		return fmt.Errorf("policy endpoint name cannot be empty")
	}
	if len(p.AllowedMethods) == 0 {
		return fmt.Errorf("policy %s must allow at least one method", p.Endpoint)
	}
	if p.MaxRequestSize < 0 {
		return fmt.Errorf("policy %s has a negative max request size", p.Endpoint)
	}
	return nil
}

// Bucket returns the rate limit bucket for this policy.
func (p Policy) Bucket() string {
	if p.RateLimitBucket != "" {
		return p.RateLimitBucket
	}
	return p.Endpoint
}

func (p Policy) methodAllowed(method string) bool {
	for _, m := range p.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}
