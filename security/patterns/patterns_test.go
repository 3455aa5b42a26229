package patterns_test

import (
	"testing"

	"github.com/pixshift/gateway/security/patterns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureMatches(t *testing.T) {
	lib := patterns.Default()

	find := func(format string) patterns.Signature {
		for _, sig := range lib.Signatures {
			if sig.Format == format {
				return sig
			}
		}
		t.Fatalf("signature %s not in table", format)
		return patterns.Signature{}
	}

	t.Run("png header", func(t *testing.T) {
		header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
		assert.True(t, find("png").Matches(header))
		assert.False(t, find("pe").Matches(header))
	})

	t.Run("pe header", func(t *testing.T) {
		header := append([]byte{0x4D, 0x5A}, make([]byte, 30)...)
		sig := find("pe")
		assert.True(t, sig.Matches(header))
		assert.True(t, sig.Executable)
	})

	t.Run("webp needs both magics", func(t *testing.T) {
		sig := find("webp")
		assert.True(t, sig.Matches([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
		assert.False(t, sig.Matches([]byte("RIFF\x00\x00\x00\x00WAVEfmt ")))
	})

	t.Run("short header never matches", func(t *testing.T) {
		assert.False(t, find("png").Matches([]byte{0x89}))
	})
}

func TestInjectionTables(t *testing.T) {
	lib := patterns.Default()

	matched := func(input string) map[patterns.InjectionCategory]bool {
		out := make(map[patterns.InjectionCategory]bool)
		for _, p := range lib.Injection {
			if p.Pattern.MatchString(input) {
				out[p.Category] = true
			}
		}
		return out
	}

	assert.True(t, matched("1 OR 1=1")[patterns.SQLInjection])
	assert.True(t, matched("<script>alert(1)</script>")[patterns.ScriptInjection])
	assert.True(t, matched("../../etc/passwd")[patterns.PathTraversal])
	assert.True(t, matched("x; rm -rf /")[patterns.CommandInjection])
	assert.Empty(t, matched("a perfectly ordinary sentence"))
}

func TestHardError(t *testing.T) {
	assert.True(t, patterns.SQLInjection.HardError())
	assert.True(t, patterns.ScriptInjection.HardError())
	assert.True(t, patterns.PathTraversal.HardError())
	assert.False(t, patterns.CommandInjection.HardError())
}

func TestFilenameTables(t *testing.T) {
	lib := patterns.Default()

	_, dangerous := lib.DangerousExtensions[".exe"]
	require.True(t, dangerous)
	_, dangerous = lib.DangerousExtensions[".png"]
	require.False(t, dangerous)

	_, reserved := lib.ReservedDeviceNames["com1"]
	assert.True(t, reserved)
}
