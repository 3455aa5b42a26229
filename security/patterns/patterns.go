package patterns

import "regexp"

/* Static pattern tables shared by the input validator and the file
 * scanner. Pure data: nothing here inspects input, it only describes
 * what to look for. Consumers receive a Library at construction
 * instead of reaching for package globals, so tests can swap tables.
 */

// InjectionCategory classifies an injection pattern by attack class.
type InjectionCategory int

const (
	SQLInjection InjectionCategory = iota + 1
	ScriptInjection
	PathTraversal
	CommandInjection
)

// String returns the string representation of the category
func (c InjectionCategory) String() string {
	switch c {
	case SQLInjection:
		return "sql_injection"
	case ScriptInjection:
		return "script_injection"
	case PathTraversal:
		return "path_traversal"
	case CommandInjection:
		return "command_injection"
	default:
		return "unknown"
	}
}

/* HardError reports whether a match in this category should fail
 * validation outright. Command-injection style matches stay warnings:
 * shell metacharacters are too common in free text to hard-block on.
 */
func (c InjectionCategory) HardError() bool {
	return c != CommandInjection
}

// InjectionPattern is one compiled pattern with its category.
type InjectionPattern struct {
	Category    InjectionCategory
	Pattern     *regexp.Regexp
	Description string
}

// Library bundles every static table the validator and scanner need.
type Library struct {
	Injection            []InjectionPattern
	Signatures           []Signature
	ExecutableMagic      [][]byte
	DangerousExtensions  map[string]struct{}
	SuspiciousFilenames  []*regexp.Regexp
	ReservedDeviceNames  map[string]struct{}
	Content              []ContentPattern
	ScannerUserAgents    []string
}

// Default returns the built-in pattern tables.
func Default() *Library {
	return &Library{
		Injection:           injectionPatterns,
		Signatures:          fileSignatures,
		ExecutableMagic:     executableMagic,
		DangerousExtensions: dangerousExtensions,
		SuspiciousFilenames: suspiciousFilenames,
		ReservedDeviceNames: reservedDeviceNames,
		Content:             contentPatterns,
		ScannerUserAgents:   scannerUserAgents,
	}
}

var injectionPatterns = []InjectionPattern{
	// SQL
	{SQLInjection, regexp.MustCompile(`(?i)\b(union\s+(all\s+)?select|insert\s+into|delete\s+from|drop\s+(table|database)|truncate\s+table|update\s+\w+\s+set)\b`), "SQL statement keywords"},
	{SQLInjection, regexp.MustCompile(`(?i)(\bor\b|\band\b)\s+['"]?\d+['"]?\s*=\s*['"]?\d+`), "SQL tautology"},
	{SQLInjection, regexp.MustCompile(`(?i)'\s*(or|and)\s*'[^']*'\s*=\s*'`), "quoted SQL tautology"},
	{SQLInjection, regexp.MustCompile(`(--|#|/\*)\s*$|;\s*--`), "SQL comment terminator"},
	{SQLInjection, regexp.MustCompile(`(?i)\b(exec(ute)?|sp_executesql)\s*\(`), "SQL execute call"},

	// XSS / script
	{ScriptInjection, regexp.MustCompile(`(?i)<\s*script\b`), "script tag"},
	{ScriptInjection, regexp.MustCompile(`(?i)<\s*/\s*script\s*>`), "script close tag"},
	{ScriptInjection, regexp.MustCompile(`(?i)javascript\s*:`), "javascript protocol"},
	{ScriptInjection, regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|mouseout|focus|blur|submit|change|keydown|keyup)\s*=`), "inline event handler"},
	{ScriptInjection, regexp.MustCompile(`(?i)<\s*(iframe|object|embed|applet|form)\b`), "embedding tag"},
	{ScriptInjection, regexp.MustCompile(`(?i)\bexpression\s*\(|\bvbscript\s*:`), "legacy script vector"},

	// Path traversal
	{PathTraversal, regexp.MustCompile(`\.\.[\\/]`), "parent directory traversal"},
	{PathTraversal, regexp.MustCompile(`(?i)%2e%2e(%2f|%5c|[\\/])`), "encoded traversal"},
	{PathTraversal, regexp.MustCompile(`(?i)\.\.%(2f|5c)`), "mixed encoded traversal"},

	// Command injection (warning-only, see HardError)
	{CommandInjection, regexp.MustCompile("[;&|`]"), "shell metacharacter"},
	{CommandInjection, regexp.MustCompile(`\$\([^)]*\)|\$\{[^}]*\}`), "shell substitution"},
	{CommandInjection, regexp.MustCompile(`(?i)\b(wget|curl|nc|netcat|chmod|bash|/bin/sh|powershell)\b\s`), "shell command token"},
}

// scannerUserAgents are substrings of user agents sent by common
// vulnerability scanners and brute-forcing tools.
var scannerUserAgents = []string{
	"sqlmap",
	"nikto",
	"nessus",
	"acunetix",
	"masscan",
	"nmap",
	"dirbuster",
	"gobuster",
	"wfuzz",
	"havij",
	"w3af",
	"zgrab",
}
