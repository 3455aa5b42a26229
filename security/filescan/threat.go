package filescan

import "time"

/* Threat values are immutable once produced by the scanner. Severity
 * determines blocking policy: High and Critical block, Low and Medium
 * surface as warnings.
 */

// Severity grades a detected threat.
type Severity int

const (
	Low Severity = iota + 1
	Medium
	High
	Critical
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Blocking reports whether a threat of this severity fails the scan.
func (s Severity) Blocking() bool {
	return s >= High
}

// Kind classifies what a threat is.
type Kind int

const (
	Malware Kind = iota + 1
	ScriptInjection
	SuspiciousContent
	DangerousExtension
	TypeMismatch
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Malware:
		return "malware"
	case ScriptInjection:
		return "script_injection"
	case SuspiciousContent:
		return "suspicious_content"
	case DangerousExtension:
		return "dangerous_extension"
	case TypeMismatch:
		return "type_mismatch"
	default:
		return "unknown"
	}
}

// Threat is one finding from the scanner.
type Threat struct {
	Kind        Kind
	Severity    Severity
	Description string
	Location    string // where in the file, "" when not applicable
}

/* ScanResult aggregates every finding from a single scan. Safe is
 * derived: true iff no threat is High or Critical. Lower severities
 * are kept for logging but never block.
 */
type ScanResult struct {
	Safe         bool
	Threats      []Threat
	Warnings     []string
	DeclaredType string
	DetectedType string
	SizeBytes    int64
	ScanDuration time.Duration
}

// Blocking returns the subset of threats that make the file unsafe.
func (r ScanResult) Blocking() []Threat {
	var out []Threat
	for _, t := range r.Threats {
		if t.Severity.Blocking() {
			out = append(out, t)
		}
	}
	return out
}

func (r *ScanResult) addThreat(t Threat) {
	r.Threats = append(r.Threats, t)
}

func (r *ScanResult) addWarning(w string) {
	r.Warnings = append(r.Warnings, w)
}

// finalize derives Safe from the accumulated threat list.
func (r *ScanResult) finalize(started time.Time) {
	r.Safe = len(r.Blocking()) == 0
	r.ScanDuration = time.Since(started)
}
