// Package normalize resolves upstream URLs and cleans user supplied
// identifiers before they are placed into upstream request paths.
package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	slugCharsPattern      = regexp.MustCompile(`[A-Za-z0-9_-]+`)
	chapterSepPattern     = regexp.MustCompile(`[_\-]+`)
	chapterPrefixPattern  = regexp.MustCompile(`(?i)^(?:chapter|chap|ch)(?:[\s._-]+|(\d))`)
	chapterInvalidPattern = regexp.MustCompile(`[^A-Za-z0-9.]`)
)

var digitFolder = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// Resolve returns raw as an absolute URL. Inputs that already carry a scheme
// are returned unchanged; anything unparsable is returned as given so the
// caller can reject it with IsAbsolute.
func Resolve(raw string, base string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	if strings.HasPrefix(trimmed, "//") {
		return "https:" + trimmed
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return raw
	}
	if ref.Scheme != "" {
		return trimmed
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return raw
	}

	return baseURL.ResolveReference(ref).String()
}

// IsAbsolute reports whether raw is an http(s) URL with a host.
func IsAbsolute(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// SanitizeSlug keeps only letters, digits, hyphens and underscores. A path
// such as "/manhwa/solo-leveling/" is reduced to its last segment first.
func SanitizeSlug(raw string) (string, bool) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if index := strings.LastIndex(trimmed, "/"); index >= 0 {
		trimmed = trimmed[index+1:]
	}

	slug := strings.Join(slugCharsPattern.FindAllString(trimmed, -1), "")
	if slug == "" {
		return "", false
	}
	return slug, true
}

// NormalizeChapterParam maps "20_5", "20-5" and "chapter-20-5" onto "20.5".
func NormalizeChapterParam(raw string) (string, bool) {
	value := strings.TrimSpace(FoldDigits(raw))
	value = strings.Trim(value, "/")
	if index := strings.LastIndex(value, "/"); index >= 0 {
		value = value[index+1:]
	}
	value = chapterPrefixPattern.ReplaceAllString(value, "${1}")
	value = chapterSepPattern.ReplaceAllString(value, ".")
	value = chapterInvalidPattern.ReplaceAllString(value, "")
	value = strings.Trim(value, ".")
	if value == "" {
		return "", false
	}
	return value, true
}

// ParsePageNumber never fails: bad or non-positive input yields fallback.
func ParsePageNumber(raw string, fallback int) int {
	if fallback < 1 {
		fallback = 1
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

// FoldDigits rewrites Persian and Arabic-Indic digits as ASCII digits.
func FoldDigits(raw string) string {
	return digitFolder.Replace(raw)
}
