package patterns

import "regexp"

/* Filename tables: extension denylist, denylisted filename patterns
 * and reserved Windows device names.
 */

var dangerousExtensions = toSet(
	// Executables and installers
	".exe", ".dll", ".scr", ".com", ".pif", ".msi", ".cpl", ".jar",
	// Scripts
	".bat", ".cmd", ".ps1", ".vbs", ".vbe", ".js", ".jse", ".wsf", ".wsh", ".sh", ".bash",
	// Web server scripts
	".php", ".php3", ".php4", ".php5", ".phtml", ".asp", ".aspx", ".jsp", ".jspx", ".cgi", ".pl",
	// Archives (nested payload carriers)
	".zip", ".rar", ".7z", ".tar", ".gz", ".bz2",
	// Macro-enabled office formats
	".docm", ".xlsm", ".pptm", ".dotm", ".xltm",
	// Mobile / package formats
	".apk", ".ipa", ".deb", ".rpm",
)

var suspiciousFilenames = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^autorun\.inf$`),
	regexp.MustCompile(`(?i)^desktop\.ini$`),
	regexp.MustCompile(`(?i)^thumbs\.db$`),
	regexp.MustCompile(`(?i)^\.htaccess$`),
	regexp.MustCompile(`(?i)^\.htpasswd$`),
	regexp.MustCompile(`(?i)^web\.config$`),
	regexp.MustCompile(`(?i)^\.env(\..+)?$`),
	regexp.MustCompile(`(?i)^\.git`),
	regexp.MustCompile(`(?i)^id_(rsa|dsa|ecdsa|ed25519)$`),
	regexp.MustCompile(`(?i)^crontab$`),
}

/* Reserved device names on Windows. Comparison happens on the base
 * name without extension, case-insensitively.
 */
var reservedDeviceNames = toSet(
	"con", "prn", "aux", "nul",
	"com1", "com2", "com3", "com4", "com5", "com6", "com7", "com8", "com9",
	"lpt1", "lpt2", "lpt3", "lpt4", "lpt5", "lpt6", "lpt7", "lpt8", "lpt9",
)

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
