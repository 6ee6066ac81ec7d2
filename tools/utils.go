package tools

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// FormatGUID converts a raw objectGUID []byte into a standard Microsoft GUID string
func FormatGUID(b []byte) string {
	if len(b) != 16 {
		return ""
	}
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[3], b[2], b[1], b[0],
		b[5], b[4],
		b[7], b[6],
		b[8], b[9],
		b[10], b[11], b[12], b[13], b[14], b[15],
	)
}

var (
	unsafeFileChars = regexp.MustCompile(`[^a-z0-9._\-]`)
	repeatedUnders  = regexp.MustCompile(`_+`)
)

// SafeFileName turns a principal name like "Jane.Doe@corp.com" into
// "jane.doe_corp.com" so it can be used as a file name on any platform.
func SafeFileName(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	input = unsafeFileChars.ReplaceAllString(input, "_")
	input = repeatedUnders.ReplaceAllString(input, "_")
	input = strings.Trim(input, "_.")
	if input == "" {
		return "unnamed"
	}
	return input
}

// MapKeys returns the keys of a map[string]T in sorted order.
func MapKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
