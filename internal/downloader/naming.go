package downloader

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const fallbackExtension = "bin"

var (
	imageSubtype  = regexp.MustCompile(`image/([a-z0-9]+)`)
	videoSubtype  = regexp.MustCompile(`video/([a-z0-9]+)`)
	unsafeFileChr = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// ExtensionFor derives a file extension from a content-type header
func ExtensionFor(contentType string) string {
	if m := imageSubtype.FindStringSubmatch(contentType); m != nil {
		return m[1]
	}
	if m := videoSubtype.FindStringSubmatch(contentType); m != nil {
		return m[1]
	}
	return fallbackExtension
}

// BaseName returns the last segment of the URL path, with ext appended
// when the segment has no dot.
func BaseName(rawURL, ext string) string {
	var base string
	if u, err := url.Parse(rawURL); err == nil {
		base = path.Base(u.EscapedPath())
	}
	if base == "/" || base == "." {
		base = ""
	}
	if !strings.Contains(base, ".") {
		base += "." + ext
	}
	return base
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'
func SanitizeFilename(name string) string {
	return unsafeFileChr.ReplaceAllString(name, "_")
}

// Filename builds the archive entry name {username}_{ordinal:03d}_{base}
func Filename(username string, ordinal int, base string) string {
	return SanitizeFilename(fmt.Sprintf("%s_%03d_%s", username, ordinal, base))
}
