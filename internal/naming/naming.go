// Package naming derives destination file names for downloaded images.
package naming

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const DefaultExt = "jpg"

var AllowedExtensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"}

// Name returns the file name for rawURL. extHint, when set, overrides the
// extension found in the URL path.
func Name(rawURL, extHint string) string {
	return NameAt(rawURL, extHint, time.Now())
}

// NameAt is Name with an explicit clock for the timestamp fallback.
func NameAt(rawURL, extHint string, now time.Time) string {
	base := urlBase(rawURL)
	if base == "" || !strings.Contains(base, ".") {
		base = fallbackBase(now)
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = fallbackBase(now)
	}
	ext = strings.TrimPrefix(ext, ".")
	if extHint != "" {
		ext = extHint
	}
	return fmt.Sprintf("%s.%s", stem, NormalizeExt(ext))
}

// NormalizeExt lower-cases ext and coerces anything outside the allow-list
// to DefaultExt.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if !IsAllowed(ext) {
		return DefaultExt
	}
	return ext
}

func IsAllowed(ext string) bool {
	return slices.Contains(AllowedExtensions, strings.ToLower(strings.TrimPrefix(ext, ".")))
}

// ReplaceExt swaps the extension of p for ext.
func ReplaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + "." + strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SafeName strips any directory components from a user supplied name.
func SafeName(name string) string {
	name = filepath.Base(filepath.Clean(strings.TrimSpace(name)))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

func urlBase(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func fallbackBase(now time.Time) string {
	return fmt.Sprintf("image_%s_%06d", now.Format("20060102_150405"), now.Nanosecond()/1000)
}
