package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen caps form fields that set no limit of their own.
const maxInputLen = 256

// editText applies one key press to a single-line form value. Pasted or
// fast-typed runes arrive together and are clamped to limit runes;
// control characters and newlines are dropped.
func editText(text string, msg tea.KeyMsg, limit int) string {
	if limit <= 0 {
		limit = maxInputLen
	}
	switch msg.Type {
	case tea.KeyBackspace:
		if text == "" {
			return text
		}
		_, size := utf8.DecodeLastRuneInString(text)
		return text[:len(text)-size]
	case tea.KeyCtrlU:
		return ""
	case tea.KeyCtrlW:
		return deleteWord(text)
	case tea.KeySpace:
		return appendRunes(text, []rune{' '}, limit)
	case tea.KeyRunes:
		return appendRunes(text, msg.Runes, limit)
	}
	return text
}

func appendRunes(text string, rs []rune, limit int) string {
	room := limit - utf8.RuneCountInString(text)
	if room <= 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	for _, r := range rs {
		if room == 0 {
			break
		}
		if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
		room--
	}
	return b.String()
}

// deleteWord removes trailing spaces and the word before them.
func deleteWord(text string) string {
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	i := strings.LastIndexFunc(trimmed, unicode.IsSpace)
	return trimmed[:i+1]
}

// clipLines keeps the first n lines of s. n <= 0 keeps everything.
func clipLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "")
}
