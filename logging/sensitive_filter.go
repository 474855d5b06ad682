package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces any value detected as sensitive.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns are compiled once at package initialization.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI API keys: sk-... (legacy) or sk-proj-... (project-scoped)
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),
	// Hugging Face tokens
	regexp.MustCompile(`(?i)(hf_[a-zA-Z0-9]{30,})`),
	// GitHub tokens
	regexp.MustCompile(`(?i)(ghp_[a-zA-Z0-9]{36})`),
	regexp.MustCompile(`(?i)(github_pat_[a-zA-Z0-9_]{22,})`),
	// Bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),

	// Generic secret assignments
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldNames are substrings of field or env var names that
// indicate the value must never appear in log output.
var sensitiveFieldNames = []string{
	"OPENAI_API_KEY",
	"HF_TOKEN",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"API_KEY",
	"APIKEY",
}

// RedactSensitiveData scans a string and replaces any detected secrets
// with RedactedPlaceholder. Pure function.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactField redacts a field value when either the name marks it as
// sensitive or the value itself matches a secret pattern.
//
// Example:
//
//	RedactField("OPENAI_API_KEY", "sk-secret123") // "[REDACTED]"
//	RedactField("model", "flux-schnell")          // unchanged
func RedactField(fieldName, fieldValue string) string {
	if IsSensitiveField(fieldName) {
		return RedactedPlaceholder
	}
	return RedactSensitiveData(fieldValue)
}

// IsSensitiveField reports whether the field name alone marks the value
// as sensitive.
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)

	for _, name := range sensitiveFieldNames {
		if strings.Contains(upperName, name) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether the value matches any secret pattern.
func ContainsSensitiveData(value string) bool {
	if value == "" {
		return false
	}

	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
