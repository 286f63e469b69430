// Package redact provides utilities for redacting sensitive information from
// strings before they are logged or returned in error responses. It targets
// credentials, connection strings, SQL statement values, identifiers, file
// paths, and other data that commonly leaks through error messages.
package redact

import "regexp"

// Redaction placeholders
const (
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedUUIDPlaceholder       = "[REDACTED_UUID]"
)

// rule pairs a pattern with its replacement. Rules are applied in order;
// earlier rules consume text before later, broader rules can touch it.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var rules = []rule{
	// Stack traces first so embedded file paths vanish with the trace.
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		"[STACK_TRACE_REDACTED]",
	},

	// SQL statements. The statement shape is kept for debugging while the
	// values, which may carry emails, hashes or identifiers, are dropped.
	{
		regexp.MustCompile(`(?i)(INSERT\s+INTO\s+[\w.]+\s*\([^)]*\)\s*VALUES)\s*\(.*`),
		"${1} [SQL_VALUES_REDACTED]",
	},
	{
		regexp.MustCompile(`(?i)(UPDATE\s+[\w.]+\s+SET)\s+.*`),
		"${1} [SQL_VALUES_REDACTED]",
	},
	{
		regexp.MustCompile(`(?i)(DELETE\s+FROM\s+[\w.]+)\s+WHERE\b.*`),
		"${1} [SQL_WHERE_REDACTED]",
	},
	{
		regexp.MustCompile(`(?i)SELECT\b.*?\bFROM\b.*`),
		"SELECT FROM... [SQL_VALUES_REDACTED]",
	},

	// Database connection strings with inline credentials.
	{
		regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|db|database|connection)://[^@\s]+@`),
		RedactedCredentialPlaceholder,
	},

	// Credentials and tokens.
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`),
		RedactedKeyPlaceholder,
	},
	// Three-part base64url JWT.
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		"[REDACTED_JWT]",
	},

	// Entity identifiers.
	{
		regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`),
		RedactedUUIDPlaceholder,
	},

	// File paths. Must precede host matching so dotted file names inside a
	// path are consumed as part of the path.
	{
		regexp.MustCompile(`(/[\w.-]+){2,}`),
		RedactedPathPlaceholder,
	},
	{
		regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`),
		RedactedPathPlaceholder,
	},

	// Email addresses before bare hosts so the domain goes with the address.
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
		"[REDACTED_EMAIL]",
	},
	{
		regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`),
		"[REDACTED_HOST]",
	},

	// Error-shape details that can expose internals.
	{
		regexp.MustCompile(`(?i)(?:no such file|file not found|can't open|cannot open|file error)`),
		"[REDACTED_FILE_ERROR]",
	},
	{
		regexp.MustCompile(`(?:at )?line ?\d+`),
		"[REDACTED_LINE_NUMBER]",
	},
	{
		regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`),
		"[REDACTED_SYNTAX_ERROR]",
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
