package sanitizer

import "strings"

// SingleLine collapses every whitespace run, including line breaks, into a
// single space. Used for values that end up in mail headers.
func SingleLine(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// SanitizeFilename replaces filesystem-unsafe characters and strips leading
// and trailing dots and spaces. Never returns an empty string.
func SanitizeFilename(filename string) string {
	safe := unsafeFilenameRegex.ReplaceAllString(filename, "_")
	safe = strings.Trim(safe, " .")

	if len(safe) > 255 {
		safe = safe[:255]
	}
	if safe == "" {
		safe = "file"
	}
	return safe
}
