package main

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/pixshift/gateway/security/filescan"
	"github.com/pixshift/gateway/security/patterns"
)

/* scanfile - Standalone CLI tool to run the file security scanner
 * against a local file, for triaging uploads pulled from quarantine.
 * Usage: go run cmd/scanfile/main.go <file> [declared-mime]
 * Exit codes: 0 = safe, 1 = threats found, 2 = usage error
 */

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scanfile <file> [declared-mime]")
		os.Exit(2)
	}
	path := os.Args[1]

	declaredMIME := mime.TypeByExtension(filepath.Ext(path))
	if len(os.Args) > 2 {
		declaredMIME = os.Args[2]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	scanner := filescan.New(patterns.Default(), slog.New(slog.DiscardHandler))
	result := scanner.Scan(data, declaredMIME, filepath.Base(path))

	fmt.Printf("File:          %s\n", path)
	fmt.Printf("Size:          %d bytes\n", result.SizeBytes)
	fmt.Printf("Declared type: %s\n", orNone(result.DeclaredType))
	fmt.Printf("Detected type: %s\n", orNone(result.DetectedType))
	fmt.Printf("Scan duration: %s\n", result.ScanDuration)

	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	for _, threat := range result.Threats {
		fmt.Printf("  threat [%s/%s]: %s", threat.Severity, threat.Kind, threat.Description)
		if threat.Location != "" {
			fmt.Printf(" (%s)", threat.Location)
		}
		fmt.Println()
	}

	if !result.Safe {
		fmt.Println("\n❌ UNSAFE")
		os.Exit(1)
	}
	fmt.Println("\n✓ SAFE")
}

func orNone(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
