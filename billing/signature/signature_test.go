package signature_test

import (
	"strings"
	"testing"
	"time"

	"github.com/pixshift/gateway/billing/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret(t *testing.T) signature.Secret {
	t.Helper()
	secret, err := signature.GenerateSecret(32)
	require.NoError(t, err)
	return secret
}

func TestGenerateAndParseSecret(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		secret := testSecret(t)
		parsed, err := signature.ParseSecret(secret.String())
		require.NoError(t, err)
		assert.Equal(t, secret.Bytes(), parsed.Bytes())
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := signature.ParseSecret("c2VjcmV0LXdpdGhvdXQtcHJlZml4LXBhZGRlZA==")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "whsec_")
	})

	t.Run("rejects out-of-range sizes", func(t *testing.T) {
		_, err := signature.GenerateSecret(8)
		assert.Error(t, err)
		_, err = signature.GenerateSecret(128)
		assert.Error(t, err)
	})
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)

	t.Run("valid signature", func(t *testing.T) {
		secret := testSecret(t)
		now := time.Now()
		header := signature.BuildHeader(secret, now, payload)

		assert.NoError(t, signature.Verify(secret, header, payload, 0, now))
	})

	t.Run("tampered payload fails", func(t *testing.T) {
		secret := testSecret(t)
		now := time.Now()
		header := signature.BuildHeader(secret, now, payload)

		err := signature.Verify(secret, header, []byte(`{"id":"evt_2"}`), 0, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no signature matched")
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		now := time.Now()
		header := signature.BuildHeader(testSecret(t), now, payload)

		assert.Error(t, signature.Verify(testSecret(t), header, payload, 0, now))
	})

	t.Run("stale timestamp fails", func(t *testing.T) {
		secret := testSecret(t)
		signedAt := time.Now().Add(-time.Hour)
		header := signature.BuildHeader(secret, signedAt, payload)

		err := signature.Verify(secret, header, payload, 5*time.Minute, time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tolerance")
	})

	t.Run("rotation: any matching v1 passes", func(t *testing.T) {
		oldSecret := testSecret(t)
		newSecret := testSecret(t)
		now := time.Now()

		header := strings.Join([]string{
			signature.BuildHeader(oldSecret, now, payload),
			"v1=" + signature.Sign(newSecret, now, payload),
		}, ",")

		assert.NoError(t, signature.Verify(newSecret, header, payload, 0, now))
	})
}

func TestParseHeader(t *testing.T) {
	t.Run("rejects empty header", func(t *testing.T) {
		_, err := signature.ParseHeader("")
		assert.Error(t, err)
	})

	t.Run("rejects missing timestamp", func(t *testing.T) {
		_, err := signature.ParseHeader("v1=abcdef")
		assert.Error(t, err)
	})

	t.Run("rejects missing signatures", func(t *testing.T) {
		_, err := signature.ParseHeader("t=1700000000")
		assert.Error(t, err)
	})

	t.Run("skips unknown schemes", func(t *testing.T) {
		parsed, err := signature.ParseHeader("t=1700000000,v0=zzz,v1=abcdef")
		require.NoError(t, err)
		assert.Len(t, parsed.Signatures, 1)
	})
}
