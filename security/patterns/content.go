package patterns

import "regexp"

/* Content-scan tables for the file scanner. Each pattern category
 * carries a fixed severity; the scanner maps severities to threats
 * without interpreting the pattern itself.
 */

// ContentSeverity mirrors the scanner's severity scale so the tables
// stay self-contained.
type ContentSeverity int

const (
	ContentLow ContentSeverity = iota + 1
	ContentMedium
	ContentHigh
	ContentCritical
)

// ContentPattern is one content-scan rule.
type ContentPattern struct {
	Pattern     *regexp.Regexp
	Severity    ContentSeverity
	Description string
}

var contentPatterns = []ContentPattern{
	// Critical: server-side code execution
	{regexp.MustCompile(`(?i)<\?php[\s\S]{0,200}?\b(eval|assert|system|exec|shell_exec|passthru|popen)\s*\(`), ContentCritical, "PHP execution primitive"},

	// High: active script content
	{regexp.MustCompile(`(?i)<\s*script\b`), ContentHigh, "script tag"},
	{regexp.MustCompile(`(?i)<\s*iframe\b`), ContentHigh, "iframe tag"},
	{regexp.MustCompile(`(?i)javascript\s*:`), ContentHigh, "javascript protocol"},
	{regexp.MustCompile(`(?i)vbscript\s*:`), ContentHigh, "vbscript protocol"},
	{regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus|submit)\s*=`), ContentHigh, "inline event handler"},
	{regexp.MustCompile(`(?i)<\?(php|=)|<%[^-]`), ContentHigh, "server-side script tag"},

	// Medium: injection staging and passive embeds
	{regexp.MustCompile(`(?i)\b(union\s+select|insert\s+into|drop\s+table|delete\s+from)\b`), ContentMedium, "SQL keywords"},
	{regexp.MustCompile(`(?i)<\s*(object|embed|applet)\b`), ContentMedium, "embed tag"},
	{regexp.MustCompile(`(?i)\b(wget|curl)\s+https?://|/bin/(sh|bash)\b|\bchmod\s+\+x\b`), ContentMedium, "shell command"},

	// Low: encoding-only signals
	{regexp.MustCompile(`[A-Za-z0-9+/]{100,}={0,2}`), ContentLow, "long base64 run"},
	{regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2}){10,}`), ContentLow, "hex escape run"},
	{regexp.MustCompile(`(?:\\u[0-9a-fA-F]{4}){10,}`), ContentLow, "unicode escape run"},
}
