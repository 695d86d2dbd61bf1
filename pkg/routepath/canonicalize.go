// Package routepath normalizes request paths before they are matched
// against page ids.
package routepath

import (
	"errors"
	"strings"
)

// Errors for paths that cannot name a page.
var (
	ErrBackslashInPath      = errors.New("routepath: path contains backslash")
	ErrNullByteInPath       = errors.New("routepath: path contains null byte")
	ErrInvalidPercentEscape = errors.New("routepath: invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("routepath: path escapes root via ..")
)

// Canonicalize normalizes an escaped URL path:
//   - a leading slash is added
//   - repeated slashes collapse (/blog//post → /blog/post)
//   - "." segments are dropped and ".." segments resolved
//   - a trailing slash is removed, except for "/"
//
// Paths with a backslash, a NUL byte (literal or %00), a malformed percent
// escape or a ".." above the root are rejected.
func Canonicalize(p string) (string, error) {
	if strings.Contains(p, `\`) {
		return "", ErrBackslashInPath
	}
	if strings.Contains(p, "\x00") || strings.Contains(strings.ToUpper(p), "%00") {
		return "", ErrNullByteInPath
	}
	if err := validatePercentEscapes(p); err != nil {
		return "", err
	}

	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(segments) == 0 {
				return "", ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	return "/" + strings.Join(segments, "/"), nil
}

// IsCanonical reports whether p is already in canonical form.
func IsCanonical(p string) bool {
	c, err := Canonicalize(p)
	return err == nil && c == p
}

// validatePercentEscapes checks that every % starts a %XX escape.
func validatePercentEscapes(p string) error {
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+2 >= len(p) || !isHexDigit(p[i+1]) || !isHexDigit(p[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
