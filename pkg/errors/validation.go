package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTreeName validates a tree or node name for safety and
// correctness. It rejects names that could be used for path traversal
// or injection when names end up in cache keys and file paths.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidateTreeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidTree, "tree name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidTree, "tree name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidTree, "tree name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidTree, "tree name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// socketRefRegex matches "node.socket" references used in link
// declarations.
var socketRefRegex = regexp.MustCompile(`^[^.\s]+\.[^.\s]+$`)

// ValidateSocketRef validates a "node.socket" reference.
func ValidateSocketRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidInput, "socket reference cannot be empty")
	}
	if !socketRefRegex.MatchString(ref) {
		return New(ErrCodeInvalidInput, "socket reference must have the form node.socket: %q", ref)
	}
	return nil
}

// validFormats are the artifact formats the pipeline can produce.
var validFormats = map[string]bool{
	"dot":  true,
	"svg":  true,
	"json": true,
}

// ValidateFormat validates an artifact format name.
func ValidateFormat(format string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if !validFormats[format] {
		return New(ErrCodeInvalidFormat, "unsupported format %q (valid: dot, svg, json)", format)
	}
	return nil
}
