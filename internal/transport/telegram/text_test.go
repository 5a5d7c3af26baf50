package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessageShortTextIsUntouched(t *testing.T) {
	t.Parallel()
	got := splitMessage("hello\nworld", 100)
	if len(got) != 1 || got[0] != "hello\nworld" {
		t.Fatalf("unexpected chunks: %q", got)
	}
}

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	t.Parallel()
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = strings.Repeat("x", 9)
	}
	text := strings.Join(lines, "\n")

	chunks := splitMessage(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c) > 50 {
			t.Fatalf("chunk %d has %d runes", i, utf8.RuneCountInString(c))
		}
		// Newline-boundary splitting keeps every line intact.
		for _, ln := range strings.Split(c, "\n") {
			if ln != strings.Repeat("x", 9) {
				t.Fatalf("chunk %d contains broken line %q", i, ln)
			}
		}
	}
}

func TestSplitMessageRuneSafe(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("héllo wörld ", 100)
	for _, c := range splitMessage(text, 40) {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk is not valid UTF-8: %q", c)
		}
		if utf8.RuneCountInString(c) > 40 {
			t.Fatalf("chunk exceeds limit: %d runes", utf8.RuneCountInString(c))
		}
	}
}

func TestSplitMessageNothingLost(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("abcdefghij", 50)
	var joined strings.Builder
	for _, c := range splitMessage(text, 64) {
		joined.WriteString(c)
	}
	if joined.String() != text {
		t.Fatal("content lost or reordered across chunks")
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "shorter than limit", in: "abc", n: 5, want: "abc"},
		{name: "exactly limit", in: "abcde", n: 5, want: "abcde"},
		{name: "truncated", in: "abcdef", n: 3, want: "ab…"},
		{name: "multibyte", in: "héllo", n: 2, want: "h…"},
		{name: "zero", in: "abc", n: 0, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := truncRunes(tt.in, tt.n)
			if got != tt.want {
				t.Fatalf("truncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if utf8.RuneCountInString(got) > tt.n {
				t.Fatalf("result %q exceeds the %d rune cap", got, tt.n)
			}
		})
	}
}

func TestTruncHTMLStaysWithinTelegramLimit(t *testing.T) {
	t.Parallel()
	long := "<p>" + strings.Repeat("a", 5000) + "</p>"
	got := truncHTML(long, maxMessageLen)
	if n := utf8.RuneCountInString(got); n > maxMessageLen {
		t.Fatalf("truncated message is %d runes, the cap is %d", n, maxMessageLen)
	}
	if !strings.HasSuffix(got, "…</p>") {
		t.Fatalf("open paragraph not closed, message ends with %q", got[len(got)-12:])
	}
}

func TestTruncHTMLBacksOutOfTags(t *testing.T) {
	t.Parallel()
	// A cut at rune 9 would land inside the <em> tag.
	if got := truncHTML("<p>abc<em>def</em></p>", 10); got != "<p>ab…</p>" {
		t.Fatalf("truncHTML = %q", got)
	}
}

func TestTruncHTMLClosesNestedTags(t *testing.T) {
	t.Parallel()
	in := "<p>intro <b>" + strings.Repeat("z", 100) + "</b> outro</p>"
	got := truncHTML(in, 40)
	if utf8.RuneCountInString(got) > 40 {
		t.Fatalf("result has %d runes", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…</b></p>") {
		t.Fatalf("nested tags not closed, got %q", got)
	}
}

func TestTruncHTMLShortInputUntouched(t *testing.T) {
	t.Parallel()
	if got := truncHTML("<b>ok</b>", 20); got != "<b>ok</b>" {
		t.Fatalf("truncHTML = %q", got)
	}
}

func TestParseChatID(t *testing.T) {
	t.Parallel()
	id, err := parseChatID("telegram:-100123")
	if err != nil || id != -100123 {
		t.Fatalf("parseChatID = (%d, %v)", id, err)
	}
	if _, err := parseChatID("discord:5"); err == nil {
		t.Fatal("expected error for foreign channel scheme")
	}
	if _, err := parseChatID("telegram:abc"); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}
