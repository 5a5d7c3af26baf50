package telegram

import (
	"strings"
	"unicode/utf8"
)

// maxMessageLen is Telegram's hard per-message character limit.
const maxMessageLen = 4096

// splitMessage breaks text into Telegram-sized chunks. Chunking is rune-based
// so multi-byte content never gets cut mid-character, and a newline boundary
// near the end of a window is preferred over a hard cut.
func splitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = maxMessageLen
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	start := 0 // byte index
	for start < len(text) {
		runes := 0
		end := start
		lastNL := -1 // byte index after the last newline in this window
		lastNLRunes := 0
		for end < len(text) && runes < limit {
			r, size := utf8.DecodeRuneInString(text[end:])
			if r == '\n' {
				lastNL = end + size
				lastNLRunes = runes + 1
			}
			runes++
			end += size
		}
		if end < len(text) && lastNL != -1 && lastNLRunes >= limit/3 {
			end = lastNL
		}
		chunk := strings.TrimRight(text[start:end], "\n")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		start = end
		for start < len(text) {
			r, size := utf8.DecodeRuneInString(text[start:])
			if r != '\n' {
				break
			}
			start += size
		}
	}
	return chunks
}

// truncRunes caps s at n runes, ellipsis included, so the caller can pass
// the result straight to a hard length limit.
func truncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return s[:runeIndex(s, n-1)] + "…"
}

// truncHTML caps rich text at n runes, ellipsis and closing tags included.
// The cut backs out of any tag it lands inside, and tags left open by the
// cut are closed so the truncated message still parses as balanced HTML.
func truncHTML(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := runeIndex(s, n-1)
	for cut > 0 {
		if open := strings.LastIndexByte(s[:cut], '<'); open >= 0 && strings.IndexByte(s[open:cut], '>') < 0 {
			cut = open
			continue
		}
		prefix := strings.TrimRight(s[:cut], " \n")
		closers := closeOpenTags(prefix)
		if utf8.RuneCountInString(prefix)+utf8.RuneCountInString(closers)+1 <= n {
			return prefix + "…" + closers
		}
		_, size := utf8.DecodeLastRuneInString(s[:cut])
		cut -= size
	}
	return ""
}

// Void elements never take a closing tag.
var voidTags = map[string]bool{"br": true, "img": true, "hr": true}

// closeOpenTags returns the closing tags, innermost first, for every element
// still open at the end of s.
func closeOpenTags(s string) string {
	var open []string
	for i := 0; i < len(s); {
		if s[i] != '<' {
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			break
		}
		tag := s[i+1 : i+end]
		i += end + 1
		switch {
		case strings.HasPrefix(tag, "/"):
			name := strings.ToLower(strings.TrimSpace(tag[1:]))
			for len(open) > 0 {
				top := open[len(open)-1]
				open = open[:len(open)-1]
				if top == name {
					break
				}
			}
		case strings.HasSuffix(tag, "/"):
			// self-closing, nothing to track
		default:
			name := strings.ToLower(tag)
			if sp := strings.IndexAny(name, " \t\r\n"); sp >= 0 {
				name = name[:sp]
			}
			if name != "" && !voidTags[name] {
				open = append(open, name)
			}
		}
	}
	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</")
		b.WriteString(open[i])
		b.WriteString(">")
	}
	return b.String()
}

// runeIndex returns the byte offset of the n-th rune, or len(s) when s is
// shorter than that.
func runeIndex(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
