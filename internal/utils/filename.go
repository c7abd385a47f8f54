package utils

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	multipleDashes   = regexp.MustCompile(`-{2,}`)
)

// Slugify produces a URL-friendly identifier from a page title. The result
// may be empty when the title contains no usable characters; callers are
// expected to substitute a generated fallback in that case.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = multipleDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 200 {
		slug = strings.Trim(slug[:200], "-")
	}
	return slug
}

// GuessMimeType guesses a media type from a filename's extension, falling
// back to application/octet-stream for unknown extensions.
func GuessMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "application/octet-stream"
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// Strip charset parameters; only the media type is stored.
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = strings.TrimSpace(mimeType[:i])
		}
		return mimeType
	}
	return "application/octet-stream"
}

// SanitizeFilename strips path separators and control characters from an
// attachment filename before it is handed to the content store.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, filename)
	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." || filename == ".." {
		return "attachment"
	}
	return filename
}
