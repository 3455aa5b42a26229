package filescan

import (
	"math"
	"regexp"
	"unicode"
)

/* Obfuscation scoring. The score is a weighted sum of independent
 * signals in [0,1]; each signal contributes its full weight once its
 * threshold is crossed. High scores in content that should be
 * structured text suggest packed, encoded or obfuscated payloads.
 */

// ObfuscationThreshold is the score above which the scanner reports a
// medium threat.
const ObfuscationThreshold = 0.7

const (
	entropyBitsThreshold   = 4.5
	escapeDensityThreshold = 0.10
	longRunLength          = 50
	longRunCountThreshold  = 5
	punctDensityThreshold  = 0.30
	base64CountThreshold   = 10
)

var (
	escapeSeq    = regexp.MustCompile(`\\x[0-9a-fA-F]{2}|\\u[0-9a-fA-F]{4}`)
	base64Token  = regexp.MustCompile(`[A-Za-z0-9+/]{12,}={0,2}`)
	nonSpaceRuns = regexp.MustCompile(`\S+`)
)

// ObfuscationScore computes the weighted obfuscation score for text.
func ObfuscationScore(text string) float64 {
	if text == "" {
		return 0
	}
	score := 0.0

	if CharEntropy(text) > entropyBitsThreshold {
		score += 0.3
	}

	escaped := 0
	for _, m := range escapeSeq.FindAllString(text, -1) {
		escaped += len(m)
	}
	if float64(escaped)/float64(len(text)) > escapeDensityThreshold {
		score += 0.2
	}

	longRuns := 0
	for _, run := range nonSpaceRuns.FindAllString(text, -1) {
		if len(run) >= longRunLength {
			longRuns++
		}
	}
	if longRuns > longRunCountThreshold {
		score += 0.2
	}

	punct := 0
	for _, r := range text {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
	}
	if float64(punct)/float64(len(text)) > punctDensityThreshold {
		score += 0.2
	}

	if len(base64Token.FindAllString(text, -1)) > base64CountThreshold {
		score += 0.1
	}

	return score
}

// CharEntropy returns the Shannon entropy of the string in bits per
// character.
func CharEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	return entropyOf(freq, total)
}

// ByteEntropy returns the Shannon entropy of the byte slice in bits
// per byte.
func ByteEntropy(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var counts [256]int
	for _, c := range b {
		counts[c]++
	}
	entropy := 0.0
	total := float64(len(b))
	for _, n := range counts {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func entropyOf(freq map[rune]int, total int) float64 {
	entropy := 0.0
	for _, n := range freq {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
