package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pixshift/gateway/security/filescan"
	"github.com/pixshift/gateway/security/patterns"
)

/* Suspicious-activity detection. Findings are graded on the scanner's
 * severity scale: High denies the request outright, lower grades are
 * logged and surfaced as warnings.
 */

// Finding is one suspicious signal on a request.
type Finding struct {
	Severity    filescan.Severity
	Description string
}

// Detector inspects request shape for hostile tooling and probing.
type Detector struct {
	lib *patterns.Library
}

// NewDetector creates a detector backed by the given pattern library.
func NewDetector(lib *patterns.Library) *Detector {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Detector{lib: lib}
}

const (
	maxHeaderCount       = 50
	maxHeaderValueLength = 8 * 1024
)

// Inspect returns every suspicious finding on the request.
func (d *Detector) Inspect(r *http.Request) []Finding {
	var findings []Finding

	ua := strings.ToLower(r.UserAgent())
	switch {
	case ua == "":
		findings = append(findings, Finding{
			Severity:    filescan.Low,
			Description: "missing user agent",
		})
	default:
		for _, tool := range d.lib.ScannerUserAgents {
			if strings.Contains(ua, tool) {
				findings = append(findings, Finding{
					Severity:    filescan.High,
					Description: fmt.Sprintf("scanner tool user agent %q", tool),
				})
				break
			}
		}
	}

	// Injection probes in the raw query string: the validator will
	// catch decoded parameter values, this catches the raw wire form.
	rawQuery := r.URL.RawQuery
	if rawQuery != "" {
		for _, p := range d.lib.Injection {
			if !p.Category.HardError() {
				continue
			}
			if p.Pattern.MatchString(rawQuery) {
				findings = append(findings, Finding{
					Severity:    filescan.High,
					Description: fmt.Sprintf("injection probe in query string (%s)", p.Description),
				})
				break
			}
		}
	}

	if len(r.Header) > maxHeaderCount {
		findings = append(findings, Finding{
			Severity:    filescan.Medium,
			Description: fmt.Sprintf("%d request headers", len(r.Header)),
		})
	}
	for name, values := range r.Header {
		for _, v := range values {
			if len(v) > maxHeaderValueLength {
				findings = append(findings, Finding{
					Severity:    filescan.Medium,
					Description: fmt.Sprintf("oversized header %s (%d bytes)", name, len(v)),
				})
			}
		}
	}

	return findings
}
