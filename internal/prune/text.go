// Package prune shortens long extracted text to a model input budget while
// keeping both ends of the document.
package prune

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMarker    = "[...省略中间部分...]"
	DefaultMaxBytes  = 96 * 1024
	DefaultMaxLines  = 3000
	DefaultHeadShare = 0.75
)

// Budget bounds a pruned text. HeadShare is the fraction of the budget kept
// from the start; the rest comes from the end.
type Budget struct {
	MaxBytes  int
	MaxLines  int
	HeadShare float64
	Marker    string
}

func (b Budget) normalize() Budget {
	if b.MaxBytes <= 0 {
		b.MaxBytes = DefaultMaxBytes
	}
	if b.MaxLines <= 0 {
		b.MaxLines = DefaultMaxLines
	}
	if b.HeadShare <= 0 || b.HeadShare > 1 {
		b.HeadShare = DefaultHeadShare
	}
	if b.Marker == "" {
		b.Marker = DefaultMarker
	}
	return b
}

// Exceeds reports whether s is over either limit.
func Exceeds(s string, maxBytes, maxLines int) bool {
	return len(s) > maxBytes || CountLines(s) > maxLines
}

func CountLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// Fit returns s unchanged when it is within budget. Otherwise it keeps a head
// and a tail joined by the marker and a note of the original size. The result
// never splits a UTF-8 sequence.
func Fit(s string, b Budget) string {
	b = b.normalize()
	if !Exceeds(s, b.MaxBytes, b.MaxLines) {
		return s
	}
	note := fmt.Sprintf("\n\n%s (%d bytes, %d lines)\n\n", b.Marker, len(s), CountLines(s))
	room := b.MaxBytes - len(note)
	lines := b.MaxLines - 3
	if room <= 0 || lines <= 1 {
		return prefix(s, b.MaxBytes, b.MaxLines)
	}
	headBytes := int(float64(room) * b.HeadShare)
	headLines := int(float64(lines) * b.HeadShare)
	if headLines < 1 {
		headLines = 1
	}
	head := prefix(s, headBytes, headLines)
	tail := suffix(s, room-headBytes, lines-headLines)
	return head + note + tail
}

func prefix(s string, maxBytes, maxLines int) string {
	if maxBytes <= 0 || maxLines <= 0 {
		return ""
	}
	if maxBytes < len(s) {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	if idx := nthIndex(s, '\n', maxLines); idx >= 0 {
		s = s[:idx]
	}
	return s
}

func suffix(s string, maxBytes, maxLines int) string {
	if maxBytes <= 0 || maxLines <= 0 {
		return ""
	}
	if maxBytes < len(s) {
		start := len(s) - maxBytes
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
		s = s[start:]
	}
	if idx := nthLastIndex(s, '\n', maxLines); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}

// nthIndex returns the index of the n-th occurrence of c, or -1.
func nthIndex(s string, c byte, n int) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			n--
			if n == 0 {
				return i
			}
		}
	}
	return -1
}

// nthLastIndex returns the index of the n-th occurrence of c counting from
// the end, or -1.
func nthLastIndex(s string, c byte, n int) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == c {
			n--
			if n == 0 {
				return i
			}
		}
	}
	return -1
}
