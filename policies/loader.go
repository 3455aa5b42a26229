package policies

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pixshift/gateway/gateway"
	"github.com/pixshift/gateway/security/ratelimit"
)

/* Loader manages per-endpoint security policy configuration from
 * policies.yaml. Provides in-memory lookup for fast access.
 */

// Config represents the structure of policies.yaml
type Config struct {
	Policies []PolicyConfig `yaml:"policies"`
}

// PolicyConfig represents a single endpoint policy in the YAML file
type PolicyConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	Methods        []string `yaml:"methods"`
	MaxRequestSize int64    `yaml:"max_request_size"` // bytes, 0 uses the gateway default
	RequireAuth    bool     `yaml:"require_auth"`

	RateLimit  *RateLimitConfig `yaml:"rate_limit"`
	Validation bool             `yaml:"validation"`
	Suspicious bool             `yaml:"suspicious_activity"`

	AllowedMIME []string `yaml:"allowed_mime"`
	MaxFileSize int64    `yaml:"max_file_size"`

	// BodySchema names a registered request schema; see schemas.go.
	BodySchema string `yaml:"body_schema"`
}

// RateLimitConfig is the per-endpoint rate limit budget
type RateLimitConfig struct {
	Bucket        string `yaml:"bucket"` // defaults to endpoint name
	Requests      int    `yaml:"requests"`
	WindowSeconds int    `yaml:"window_seconds"`
}

// Loader holds the loaded policies
type Loader struct {
	policies map[string]gateway.Policy
	limits   map[string]ratelimit.Limit
}

// NewLoader creates a new policy loader
func NewLoader() *Loader {
	return &Loader{
		policies: make(map[string]gateway.Policy),
		limits:   make(map[string]ratelimit.Limit),
	}
}

// Load reads and parses the policies.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading policies file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing policies YAML: %w", err)
	}

	for _, pc := range config.Policies {
		policy, err := buildPolicy(pc)
		if err != nil {
			return err
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("validating policy: %w", err)
		}

		l.policies[policy.Endpoint] = policy

		if pc.RateLimit != nil {
			if pc.RateLimit.Requests <= 0 || pc.RateLimit.WindowSeconds <= 0 {
				return fmt.Errorf("policy %s has a non-positive rate limit budget", pc.Endpoint)
			}
			l.limits[policy.Bucket()] = ratelimit.Limit{
				Requests: pc.RateLimit.Requests,
				Window:   time.Duration(pc.RateLimit.WindowSeconds) * time.Second,
			}
		}
	}

	return nil
}

func buildPolicy(pc PolicyConfig) (gateway.Policy, error) {
	policy := gateway.Policy{
		Endpoint:                 pc.Endpoint,
		AllowedMethods:           pc.Methods,
		MaxRequestSize:           pc.MaxRequestSize,
		RequireAuth:              pc.RequireAuth,
		EnableRateLimit:          pc.RateLimit != nil,
		EnableInputValidation:    pc.Validation,
		EnableSuspiciousActivity: pc.Suspicious,
		AllowedMIME:              pc.AllowedMIME,
		MaxFileSize:              pc.MaxFileSize,
	}
	if pc.RateLimit != nil {
		policy.RateLimitBucket = pc.RateLimit.Bucket
	}

	if pc.BodySchema != "" {
		schema, ok := schemas[pc.BodySchema]
		if !ok {
			return gateway.Policy{}, fmt.Errorf("unknown body schema %q for policy %s", pc.BodySchema, pc.Endpoint)
		}
		policy.ValidateBody = schema
	}
	return policy, nil
}

// Get retrieves a policy by endpoint name
func (l *Loader) Get(endpoint string) (gateway.Policy, error) {
	policy, exists := l.policies[endpoint]
	if !exists {
		return gateway.Policy{}, fmt.Errorf("policy not found: %s", endpoint)
	}
	return policy, nil
}

// List returns all loaded policies
func (l *Loader) List() []gateway.Policy {
	policies := make([]gateway.Policy, 0, len(l.policies))
	for _, policy := range l.policies {
		policies = append(policies, policy)
	}
	return policies
}

// Exists checks if an endpoint has a policy
func (l *Loader) Exists(endpoint string) bool {
	_, exists := l.policies[endpoint]
	return exists
}

// Limits returns the rate limit budgets declared by the policies,
// keyed by bucket, for wiring the limiter.
func (l *Loader) Limits() map[string]ratelimit.Limit {
	return l.limits
}
