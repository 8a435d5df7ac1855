package media

import (
	"strings"
	"unicode/utf8"
)

// Sanitized names stay within both limits so that name, suffix and
// extension fit a 255-byte NAME_MAX.
const (
	MaxFilenameRunes  = 200
	MaxFilenameBytes  = 200
	MaxExtensionBytes = 16
)

var unsafeFilenameChars = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SafeFilename replaces filesystem-unsafe characters with '_' and truncates
// the result to MaxFilenameRunes characters and MaxFilenameBytes bytes.
func SafeFilename(name string) string {
	safe := unsafeFilenameChars.Replace(name)
	if utf8.RuneCountInString(safe) > MaxFilenameRunes {
		runes := []rune(safe)
		safe = string(runes[:MaxFilenameRunes])
	}
	return truncateBytes(safe, MaxFilenameBytes)
}

// truncateBytes cuts s to at most n bytes on a rune boundary.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// AttachmentFilename builds "<safe title>.<ext>". The extension is sanitized
// as well; an empty extension yields the bare title.
func AttachmentFilename(title, ext string) string {
	base := SafeFilename(strings.TrimSpace(title))
	if strings.Trim(base, ".") == "" {
		base = "file"
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return base
	}
	return base + "." + truncateBytes(SafeFilename(ext), MaxExtensionBytes)
}
