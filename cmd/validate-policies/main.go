package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pixshift/gateway/policies"
)

/* validate-policies - Standalone CLI tool to validate policies.yaml
 * Usage: go run cmd/validate-policies/main.go [policies.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	policiesFile := "policies.yaml"
	if len(os.Args) > 1 {
		policiesFile = os.Args[1]
	}

	fmt.Printf("Validating policies file: %s\n", policiesFile)
	fmt.Println(strings.Repeat("-", 50))

	loader := policies.NewLoader()
	if err := loader.Load(policiesFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	loaded := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d policy(ies):\n", len(loaded))

	for i, policy := range loaded {
		fmt.Printf("\n%d. Endpoint: %s\n", i+1, policy.Endpoint)
		fmt.Printf("   Methods:        %s\n", strings.Join(policy.AllowedMethods, ", "))
		fmt.Printf("   Require Auth:   %t\n", policy.RequireAuth)
		fmt.Printf("   Rate Limited:   %t\n", policy.EnableRateLimit)
		fmt.Printf("   Validation:     %t\n", policy.EnableInputValidation)
		if policy.EnableRateLimit {
			if limit, ok := loader.Limits()[policy.Bucket()]; ok {
				fmt.Printf("   Budget:         %d per %s (bucket %s)\n", limit.Requests, limit.Window, policy.Bucket())
			}
		}
		if len(policy.AllowedMIME) > 0 {
			fmt.Printf("   Allowed MIME:   %s\n", strings.Join(policy.AllowedMIME, ", "))
		}
		if policy.MaxFileSize > 0 {
			fmt.Printf("   Max File Size:  %d bytes\n", policy.MaxFileSize)
		}
	}

	fmt.Printf("\n✓ All policies are valid!\n")
	os.Exit(0)
}
