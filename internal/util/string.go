package util

import "strings"

// NormalizeWhitespace collapses runs of whitespace into a single space
// and trims both ends. Total: empty input yields "".
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize performs basic string normalization (lowercase + trim)
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HasHangul reports whether s contains at least one Hangul syllable
// (U+AC00..U+D7A3).
func HasHangul(s string) bool {
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7A3 {
			return true
		}
	}
	return false
}

// ToSlug turns a human wiki title into a stable identifier token:
// parentheses become spaces, whitespace and hyphen runs become single
// underscores, repeated underscores collapse, ends are trimmed,
// everything is lowercased. Idempotent.
func ToSlug(title string) string {
	s := NormalizeWhitespace(title)
	s = strings.NewReplacer("(", " ", ")", " ").Replace(s)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '_' {
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}

	return strings.ToLower(strings.Trim(b.String(), "_"))
}

// SplitBaseAndVariant splits a slug into its base name (first
// underscore-delimited token) and variant key (remaining tokens joined
// with underscore). An empty slug yields ("", "").
func SplitBaseAndVariant(slug string) (base, variantKey string) {
	tokens := strings.FieldsFunc(slug, func(r rune) bool { return r == '_' })
	if len(tokens) == 0 {
		return "", ""
	}
	if len(tokens) == 1 {
		return tokens[0], ""
	}
	return tokens[0], strings.Join(tokens[1:], "_")
}

// DeSlug replaces underscore/hyphen runs with spaces, for display and
// wiki search use.
func DeSlug(s string) string {
	return NormalizeWhitespace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// ContainsString checks if a string slice contains a specific item
func ContainsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// SanitizeForDir converts a student name into a filesystem-safe
// directory name.
func SanitizeForDir(name string) string {
	if strings.TrimSpace(name) == "" {
		return "unknown"
	}

	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			b.WriteByte('_')
		case ' ', '\t':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}
