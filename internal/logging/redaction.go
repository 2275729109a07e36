package logging

import (
	"regexp"
	"strings"
)

// Redaction patterns for sensitive data in logs.
var (
	// JSONSecretPattern matches password and token members of JSON bodies,
	// e.g. {"new_password": "..."} or {"access_token": "..."}. Escaped
	// quotes are part of the value.
	JSONSecretPattern = regexp.MustCompile(`(?i)("[a-z_]*(?:password|token)"\s*:\s*")((?:[^"\\]|\\.)*)`)

	// PasswordPattern matches passwords in various formats.
	PasswordPattern = regexp.MustCompile(`(?i)(password[=:]\s*)([^\s"',}]+)`)

	// TokenPattern matches API tokens and bearer tokens.
	TokenPattern = regexp.MustCompile(`(?i)(Bearer\s+)([A-Za-z0-9\-_.]{20,})`)

	// ConnectionStringPattern matches URLs with embedded credentials.
	ConnectionStringPattern = regexp.MustCompile(`://[^:/]+:[^@/]+@`)

	// TokenEnvPattern matches tokens in environment variables.
	TokenEnvPattern = regexp.MustCompile(`(?i)([A-Z_]+TOKEN[=:]\s*|[A-Z_]+_TOKEN[=:]\s*)([A-Za-z0-9\-_]{20,})`)
)

// RedactString applies redaction patterns to a string, masking sensitive data.
func RedactString(s string) string {
	if s == "" {
		return s
	}

	result := s

	result = JSONSecretPattern.ReplaceAllString(result, `${1}***REDACTED***`)

	// Redact passwords
	result = PasswordPattern.ReplaceAllString(result, `${1}***REDACTED***`)

	// Redact tokens
	result = TokenPattern.ReplaceAllString(result, `${1}***REDACTED***`)
	result = TokenEnvPattern.ReplaceAllString(result, `${1}***REDACTED***`)

	// Redact connection strings
	result = ConnectionStringPattern.ReplaceAllString(result, `://***REDACTED***@`)

	return result
}

// RedactFields masks the values of password, token and secret fields.
func RedactFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return fields
	}

	redacted := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			redacted[k] = "***REDACTED***"
			continue
		}
		if str, ok := v.(string); ok {
			redacted[k] = RedactString(str)
		} else {
			redacted[k] = v
		}
	}

	return redacted
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, sensitive := range []string{"password", "token", "secret"} {
		if strings.Contains(keyLower, sensitive) {
			return true
		}
	}
	return false
}
