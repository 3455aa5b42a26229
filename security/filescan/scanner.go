package filescan

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pixshift/gateway/security/patterns"
)

// Scan bounds.
const (
	DefaultMaxScanSize = 10 * 1024 * 1024 // deep content scanning cap
	contentScanLimit   = 1 * 1024 * 1024  // regex sweep over the first 1 MB
	embeddedSkipBytes  = 100              // skip legitimate headers before embedded-magic search
	entropyChunkSize   = 1024
	highEntropyBits    = 7.5
	nullDensityLimit   = 0.10
	tinyImageBytes     = 100
	hugeImageBytes     = 100 * 1024 * 1024
)

/* Scanner performs binary-level analysis of uploaded files. Pure over
 * its inputs aside from logging, so one instance serves all requests
 * concurrently.
 *
 * The pipeline deliberately never short-circuits: every step runs and
 * accumulates findings so a single scan reports every issue, even on
 * files that are already doomed.
 */
type Scanner struct {
	lib         *patterns.Library
	log         *slog.Logger
	maxScanSize int64
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMaxScanSize overrides the deep-scan size cap.
func WithMaxScanSize(n int64) Option {
	return func(s *Scanner) { s.maxScanSize = n }
}

// New creates a scanner backed by the given pattern library.
func New(lib *patterns.Library, log *slog.Logger, opts ...Option) *Scanner {
	if lib == nil {
		lib = patterns.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Scanner{lib: lib, log: log, maxScanSize: DefaultMaxScanSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan analyzes file bytes against the declared MIME type and
// filename. Equivalent to ScanAt with an unknown modification time.
func (s *Scanner) Scan(data []byte, declaredMIME, filename string) ScanResult {
	return s.ScanAt(data, declaredMIME, filename, time.Time{})
}

// ScanAt additionally checks file metadata against modTime when the
// caller knows it (zero value skips the timestamp checks).
func (s *Scanner) ScanAt(data []byte, declaredMIME, filename string, modTime time.Time) ScanResult {
	started := time.Now()
	result := ScanResult{
		DeclaredType: declaredMIME,
		SizeBytes:    int64(len(data)),
	}

	s.checkBasicProperties(&result, filename)
	s.checkSignatures(&result, data, declaredMIME)

	if int64(len(data)) > s.maxScanSize {
		// Oversized files skip deep content scanning rather than
		// failing closed; the size itself is not a threat.
		result.addWarning(fmt.Sprintf("file exceeds %d bytes, content scan skipped", s.maxScanSize))
	} else {
		s.scanContent(&result, data)
		s.scanBinary(&result, data)
	}

	s.checkMetadata(&result, declaredMIME, modTime)

	result.finalize(started)

	if !result.Safe {
		s.log.Warn("file scan blocked",
			"filename", filename,
			"declared_type", declaredMIME,
			"detected_type", result.DetectedType,
			"threats", len(result.Threats),
		)
	}
	return result
}

/* Step 1: filename-level properties. Extension denylist, double
 * extensions with a dangerous trailer, denylisted filename patterns
 * and hidden files.
 */
func (s *Scanner) checkBasicProperties(result *ScanResult, filename string) {
	ext := strings.ToLower(path.Ext(filename))
	if _, dangerous := s.lib.DangerousExtensions[ext]; dangerous {
		result.addThreat(Threat{
			Kind:        DangerousExtension,
			Severity:    High,
			Description: fmt.Sprintf("dangerous file extension %q", ext),
			Location:    filename,
		})
	}

	// Double extension: a dangerous trailer behind an innocuous one,
	// e.g. invoice.pdf.exe.
	trimmed := strings.TrimSuffix(filename, ext)
	if inner := strings.ToLower(path.Ext(trimmed)); ext != "" && inner != "" {
		if _, dangerous := s.lib.DangerousExtensions[ext]; dangerous {
			result.addThreat(Threat{
				Kind:        DangerousExtension,
				Severity:    High,
				Description: fmt.Sprintf("double extension %q hides dangerous trailer %q", inner+ext, ext),
				Location:    filename,
			})
		}
	}

	for _, p := range s.lib.SuspiciousFilenames {
		if p.MatchString(filename) {
			result.addThreat(Threat{
				Kind:        SuspiciousContent,
				Severity:    High,
				Description: "denylisted filename",
				Location:    filename,
			})
			break
		}
	}

	if strings.HasPrefix(filename, ".") {
		result.addWarning(fmt.Sprintf("hidden file %q", filename))
	}
}

/* Step 2: magic-byte detection over a bounded header. Executable
 * signatures are always critical; declared/detected mismatches are
 * scaled by how dangerous the detected type is; multiple simultaneous
 * matches indicate a polyglot.
 */
func (s *Scanner) checkSignatures(result *ScanResult, data []byte, declaredMIME string) {
	header := data
	if len(header) > patterns.HeaderSize {
		header = header[:patterns.HeaderSize]
	}

	var matches []patterns.Signature
	seen := map[string]bool{}
	for _, sig := range s.lib.Signatures {
		if sig.Matches(header) && !seen[sig.Format] {
			matches = append(matches, sig)
			seen[sig.Format] = true
		}
	}

	if len(matches) == 0 {
		return
	}
	result.DetectedType = matches[0].Format

	declared := strings.ToLower(strings.TrimSpace(declaredMIME))
	declaredImage := strings.HasPrefix(declared, "image/")

	for _, sig := range matches {
		if sig.Executable {
			result.addThreat(Threat{
				Kind:        Malware,
				Severity:    Critical,
				Description: fmt.Sprintf("executable signature %q detected", sig.Format),
				Location:    "header",
			})
			continue
		}

		mismatch := sig.MIME != "" && declared != "" && declared != sig.MIME
		if sig.MIME == "" {
			// markup and other extension-less formats: a mismatch
			// whenever anything concrete was declared
			mismatch = declared != ""
		}
		if !mismatch {
			continue
		}

		severity := Medium
		if sig.Markup && declaredImage {
			// script content smuggled under an image declaration
			severity = High
		} else if sig.Dangerous && declaredImage {
			severity = High
		}
		result.addThreat(Threat{
			Kind:        TypeMismatch,
			Severity:    severity,
			Description: fmt.Sprintf("declared type %q but detected %q", declaredMIME, sig.Format),
			Location:    "header",
		})
	}

	if len(matches) > 1 {
		formats := make([]string, len(matches))
		for i, sig := range matches {
			formats[i] = sig.Format
		}
		result.addThreat(Threat{
			Kind:        SuspiciousContent,
			Severity:    High,
			Description: fmt.Sprintf("polyglot file matches multiple signatures: %s", strings.Join(formats, ", ")),
			Location:    "header",
		})
	}
}

/* Step 3a: textual content sweep over the first 1 MB, plus the
 * obfuscation score.
 */
func (s *Scanner) scanContent(result *ScanResult, data []byte) {
	sample := data
	if len(sample) > contentScanLimit {
		sample = sample[:contentScanLimit]
	}
	if !utf8.Valid(sample) {
		// binary content is handled by scanBinary
		return
	}
	text := string(sample)

	for _, p := range s.lib.Content {
		loc := p.Pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		result.addThreat(Threat{
			Kind:        contentKind(p.Severity),
			Severity:    contentSeverity(p.Severity),
			Description: p.Description,
			Location:    fmt.Sprintf("offset %d", loc[0]),
		})
	}

	if score := ObfuscationScore(text); score > ObfuscationThreshold {
		result.addThreat(Threat{
			Kind:        SuspiciousContent,
			Severity:    Medium,
			Description: fmt.Sprintf("obfuscation score %.2f exceeds %.2f", score, ObfuscationThreshold),
		})
	}
}

/* Step 3b: binary checks. Embedded executable magic after the first
 * 100 bytes (so legitimate headers are not re-reported), null-byte
 * density, and per-chunk byte entropy near the theoretical maximum.
 */
func (s *Scanner) scanBinary(result *ScanResult, data []byte) {
	sample := data
	if len(sample) > contentScanLimit {
		sample = sample[:contentScanLimit]
	}

	if len(sample) > embeddedSkipBytes {
		body := sample[embeddedSkipBytes:]
		for _, magic := range s.lib.ExecutableMagic {
			if idx := bytes.Index(body, magic); idx >= 0 {
				result.addThreat(Threat{
					Kind:        Malware,
					Severity:    High,
					Description: "embedded executable signature",
					Location:    fmt.Sprintf("offset %d", embeddedSkipBytes+idx),
				})
				break
			}
		}
	}

	if len(sample) > 0 && !utf8.Valid(sample) {
		nulls := bytes.Count(sample, []byte{0x00})
		if density := float64(nulls) / float64(len(sample)); density > nullDensityLimit {
			result.addThreat(Threat{
				Kind:        SuspiciousContent,
				Severity:    Medium,
				Description: fmt.Sprintf("null-byte density %.0f%%", density*100),
			})
		}
	}

	for offset := 0; offset+entropyChunkSize <= len(sample); offset += entropyChunkSize {
		if e := ByteEntropy(sample[offset : offset+entropyChunkSize]); e > highEntropyBits {
			result.addThreat(Threat{
				Kind:        SuspiciousContent,
				Severity:    Medium,
				Description: fmt.Sprintf("near-maximal byte entropy %.2f bits", e),
				Location:    fmt.Sprintf("offset %d", offset),
			})
			break
		}
	}
}

/* Step 4: metadata. Timestamps that cannot be right and size outliers
 * for declared images.
 */
func (s *Scanner) checkMetadata(result *ScanResult, declaredMIME string, modTime time.Time) {
	if !modTime.IsZero() {
		now := time.Now()
		if modTime.After(now.Add(24 * time.Hour)) {
			result.addThreat(Threat{
				Kind:        SuspiciousContent,
				Severity:    Low,
				Description: fmt.Sprintf("future-dated modification time %s", modTime.Format(time.RFC3339)),
			})
		} else if modTime.Before(now.AddDate(-20, 0, 0)) {
			result.addWarning(fmt.Sprintf("very old modification time %s", modTime.Format(time.RFC3339)))
		}
	}

	if strings.HasPrefix(strings.ToLower(declaredMIME), "image/") {
		switch {
		case result.SizeBytes < tinyImageBytes:
			result.addWarning(fmt.Sprintf("declared image is suspiciously small (%d bytes)", result.SizeBytes))
		case result.SizeBytes > hugeImageBytes:
			result.addWarning(fmt.Sprintf("declared image is very large (%d bytes)", result.SizeBytes))
		}
	}
}

func contentSeverity(cs patterns.ContentSeverity) Severity {
	switch cs {
	case patterns.ContentCritical:
		return Critical
	case patterns.ContentHigh:
		return High
	case patterns.ContentMedium:
		return Medium
	default:
		return Low
	}
}

func contentKind(cs patterns.ContentSeverity) Kind {
	// active script patterns are script injection; the rest is
	// suspicious content
	if cs >= patterns.ContentHigh {
		return ScriptInjection
	}
	return SuspiciousContent
}
