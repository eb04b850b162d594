package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// coordinatePartRegex matches a single groupId, artifactId or version segment.
// Maven allows letters, digits, dots, dashes and underscores; versions may
// additionally carry a "+" build suffix.
var coordinatePartRegex = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)

// ValidateCoordinatePart validates one component of a group:artifact:version
// coordinate. The rules are intentionally conservative because the parts are
// joined into URLs and on-disk paths:
//   - No empty parts
//   - No control characters
//   - No path traversal sequences (..)
//   - Maximum length of 256 characters
func ValidateCoordinatePart(kind, value string) error {
	if value == "" {
		return New(ErrCodeInvalidCoordinate, "%s cannot be empty", kind)
	}
	if len(value) > 256 {
		return New(ErrCodeInvalidCoordinate, "%s too long (max 256 characters)", kind)
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCoordinate, "%s contains invalid control characters", kind)
		}
	}
	if strings.Contains(value, "..") {
		return New(ErrCodeInvalidCoordinate, "%s contains invalid characters: %q", kind, "..")
	}
	if !coordinatePartRegex.MatchString(value) {
		return New(ErrCodeInvalidCoordinate, "invalid %s: %q", kind, value)
	}
	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal when request paths are mapped onto a directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
