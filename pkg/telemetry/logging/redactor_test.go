package logging

import (
	"strings"
	"testing"
)

func TestRedactStringPatterns(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"email", "contact jane.doe@example.com for details", "jane.doe@example.com"},
		{"ssn", "ssn is 123-45-6789", "123-45-6789"},
		{"credit card", "card 4111 1111 1111 1111 on file", "4111 1111 1111 1111"},
		{"phone", "call +1 555-867-5309", "555-867-5309"},
		{"api key", "using sk-abc123def456", "sk-abc123def456"},
		{"bearer token", "Authorization: Bearer eyJhbGciOi", "eyJhbGciOi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.RedactString(tt.input)
			if strings.Contains(out, tt.leak) {
				t.Errorf("redaction leaked %q: %q", tt.leak, out)
			}
		})
	}
}

func TestRedactStringLeavesCleanText(t *testing.T) {
	r := NewRedactor()
	in := "decision classification for doc-007 recorded"
	if out := r.RedactString(in); out != in {
		t.Errorf("clean text modified: %q", out)
	}
}

func TestRedactArgsSensitiveKeys(t *testing.T) {
	r := NewRedactor()

	args := r.RedactArgs("api_key", "sk-longsecretvalue", "claim_id", "claim-001")

	if s, ok := args[1].(string); !ok || strings.Contains(s, "longsecretvalue") {
		t.Errorf("sensitive key value leaked: %v", args[1])
	}
	if args[3] != "claim-001" {
		t.Errorf("non-sensitive value modified: %v", args[3])
	}
}
