package filescan_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/pixshift/gateway/security/filescan"
	"github.com/stretchr/testify/assert"
)

func TestObfuscationScore(t *testing.T) {
	t.Run("uniform random printable ascii scores above threshold", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		var b strings.Builder
		for i := 0; i < 10000; i++ {
			b.WriteByte(byte(0x20 + rng.Intn(95)))
		}

		score := filescan.ObfuscationScore(b.String())
		assert.Greater(t, score, filescan.ObfuscationThreshold)
	})

	t.Run("repetitive text scores near zero", func(t *testing.T) {
		score := filescan.ObfuscationScore(strings.Repeat("a ", 5000))
		assert.LessOrEqual(t, score, 0.1)
	})

	t.Run("escape-heavy text picks up the escape signal", func(t *testing.T) {
		plain := filescan.ObfuscationScore(strings.Repeat("hello world ", 100))
		escaped := filescan.ObfuscationScore(strings.Repeat(`\x41\x42\x43 `, 100))
		assert.Greater(t, escaped, plain)
	})

	t.Run("empty string scores zero", func(t *testing.T) {
		assert.Zero(t, filescan.ObfuscationScore(""))
	})
}

func TestCharEntropy(t *testing.T) {
	assert.Zero(t, filescan.CharEntropy(""))
	assert.Zero(t, filescan.CharEntropy("aaaa"))
	assert.InDelta(t, 1.0, filescan.CharEntropy("abababab"), 0.001)
	assert.Greater(t, filescan.CharEntropy("q8#kZ!m2@pL9$vX4"), 3.5)
}

func TestByteEntropy(t *testing.T) {
	assert.Zero(t, filescan.ByteEntropy(nil))
	assert.Zero(t, filescan.ByteEntropy(make([]byte, 1024)))

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	assert.InDelta(t, 8.0, filescan.ByteEntropy(all), 0.001)
}
