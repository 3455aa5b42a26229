package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SecretPrefix is the prefix for shared webhook signing secrets
	SecretPrefix = "whsec_"

	// MinSecretBytes is the minimum recommended secret size (192 bits)
	MinSecretBytes = 24

	// MaxSecretBytes is the maximum recommended secret size (512 bits)
	MaxSecretBytes = 64

	// DefaultTolerance bounds the age of a signed timestamp; replays
	// outside it fail verification even with a valid MAC.
	DefaultTolerance = 5 * time.Minute
)

// Secret represents a shared webhook signing secret
type Secret struct {
	raw    []byte
	base64 string
}

// GenerateSecret creates a new cryptographically secure signing secret
// between MinSecretBytes and MaxSecretBytes in size.
func GenerateSecret(size int) (Secret, error) {
	if size < MinSecretBytes || size > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return Secret{}, fmt.Errorf("generating random bytes: %w", err)
	}

	return Secret{
		raw:    bytes,
		base64: SecretPrefix + base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// ParseSecret parses a base64-encoded secret with the whsec_ prefix
func ParseSecret(encoded string) (Secret, error) {
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	b64 := strings.TrimPrefix(encoded, SecretPrefix)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}

	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	return Secret{
		raw:    raw,
		base64: encoded,
	}, nil
}

// String returns the base64-encoded secret with prefix
func (s Secret) String() string {
	return s.base64
}

// Bytes returns the raw secret bytes
func (s Secret) Bytes() []byte {
	return s.raw
}

/* Header is the parsed form of the provider's signature header:
 *
 *   t=<unix timestamp>,v1=<hex hmac>[,v1=<hex hmac>]
 *
 * Multiple v1 entries appear during secret rotation.
 */
type Header struct {
	Timestamp  time.Time
	Signatures []string
}

// ParseHeader parses the signature header value.
func ParseHeader(header string) (Header, error) {
	if header == "" {
		return Header{}, fmt.Errorf("signature header is empty")
	}

	var out Header
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return Header{}, fmt.Errorf("invalid signature header element %q", part)
		}
		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Header{}, fmt.Errorf("parsing signature timestamp: %w", err)
			}
			out.Timestamp = time.Unix(unix, 0)
		case "v1":
			out.Signatures = append(out.Signatures, value)
		default:
			// unknown schemes are skipped for forward compatibility
		}
	}

	if out.Timestamp.IsZero() {
		return Header{}, fmt.Errorf("signature header is missing a timestamp")
	}
	if len(out.Signatures) == 0 {
		return Header{}, fmt.Errorf("signature header has no v1 signatures")
	}
	return out, nil
}

// Sign computes the hex HMAC-SHA256 over "{timestamp}.{payload}".
func Sign(secret Secret, timestamp time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, secret.Bytes())
	fmt.Fprintf(mac, "%d.", timestamp.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildHeader renders a header value for the given payload, used by
// tests and the replay tooling.
func BuildHeader(secret Secret, timestamp time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), Sign(secret, timestamp, payload))
}

/* Verify checks the payload against the signature header using
 * constant-time comparison, rejecting timestamps outside the
 * tolerance window in either direction.
 */
func Verify(secret Secret, header string, payload []byte, tolerance time.Duration, now time.Time) error {
	parsed, err := ParseHeader(header)
	if err != nil {
		return err
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	age := now.Sub(parsed.Timestamp)
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("signature timestamp outside tolerance of %s", tolerance)
	}

	expected := Sign(secret, parsed.Timestamp, payload)
	for _, sig := range parsed.Signatures {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1 {
			return nil
		}
	}
	return fmt.Errorf("no signature matched")
}
