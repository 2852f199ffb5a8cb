// Package validation holds input rules shared by services and handlers.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Length limits in runes.
const (
	MaxPostLen        = 10000
	MaxCommentLen     = 10000
	MaxMessageLen     = 5000
	MaxTitleLen       = 200
	MaxDisplayNameLen = 100
	MaxBioLen         = 2000
	MaxLocationLen    = 120
	MaxCaptionLen     = 500
	MaxRoomNameLen    = 100
)

// Text trims s and enforces a non-empty value of at most max runes.
func Text(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return s, nil
}

// OptionalText trims s and enforces at most max runes; empty is allowed.
func OptionalText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > max {
		return "", fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return s, nil
}

var categorySlugRegex = regexp.MustCompile(`^[a-z0-9-]{2,80}$`)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// ValidateCategorySlug validates discussion category slug format.
func ValidateCategorySlug(slug string) error {
	if !categorySlugRegex.MatchString(slug) {
		return fmt.Errorf("slug must be 2-80 characters and contain only lowercase letters, numbers, and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}
	return nil
}

var allowedMediaTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"video/mp4":  {},
	"video/webm": {},
}

// MaxMediaBytes caps registered media size.
const MaxMediaBytes int64 = 50 << 20

// ValidateMedia checks a registered file's content type and size.
func ValidateMedia(contentType string, size int64) error {
	if _, ok := allowedMediaTypes[strings.ToLower(contentType)]; !ok {
		return fmt.Errorf("unsupported content type %q", contentType)
	}
	if size <= 0 || size > MaxMediaBytes {
		return fmt.Errorf("size must be between 1 and %d bytes", MaxMediaBytes)
	}
	return nil
}

// CheckMutableFields rejects any key of fields not in allowed. It returns the
// accepted keys sorted, for use as the policy's field list.
func CheckMutableFields(fields map[string]any, allowed ...string) ([]string, error) {
	permitted := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		permitted[f] = struct{}{}
	}

	keys := make([]string, 0, len(fields))
	var rejected []string
	for k := range fields {
		if _, ok := permitted[k]; !ok {
			rejected = append(rejected, k)
			continue
		}
		keys = append(keys, k)
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return nil, fmt.Errorf("field(s) %s cannot be modified", strings.Join(rejected, ", "))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no updatable fields provided")
	}
	sort.Strings(keys)
	return keys, nil
}
