package feed

import (
	"errors"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <link>https://example.org</link>
    <item>
      <title>Second post</title>
      <link>https://example.org/2</link>
      <description>&lt;p&gt;desc two&lt;/p&gt;</description>
      <guid>post-2</guid>
      <pubDate>Tue, 03 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>First post</title>
      <link>https://example.org/1</link>
      <description>desc one</description>
      <guid>post-1</guid>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Undated post</title>
      <link>https://example.org/0</link>
    </item>
  </channel>
</rss>`

func TestParsePreservesDocumentOrder(t *testing.T) {
	t.Parallel()
	p := NewParser()
	items, err := p.Parse([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("parsed %d items, want 3", len(items))
	}
	for i, title := range []string{"Second post", "First post", "Undated post"} {
		if items[i].Field(FieldTitle) != title {
			t.Fatalf("item[%d] title = %q, want %q", i, items[i].Field(FieldTitle), title)
		}
	}
}

func TestParseMapsFields(t *testing.T) {
	t.Parallel()
	p := NewParser()
	items, err := p.Parse([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	it := items[1]
	if it.Field(FieldLink) != "https://example.org/1" {
		t.Fatalf("link = %q", it.Field(FieldLink))
	}
	if it.Field(FieldDescription) != "desc one" {
		t.Fatalf("description = %q", it.Field(FieldDescription))
	}
	if it.Field(FieldGUID) != "post-1" {
		t.Fatalf("guid = %q", it.Field(FieldGUID))
	}
	// RSS 2.0 has no separate content block; description stands in for it.
	if it.Field(FieldContent) != "desc one" {
		t.Fatalf("content fallback = %q", it.Field(FieldContent))
	}

	want := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if !it.PubDate.Equal(want) {
		t.Fatalf("pub date = %v, want %v", it.PubDate, want)
	}
}

func TestParseUndatedItemHasNoDate(t *testing.T) {
	t.Parallel()
	p := NewParser()
	items, err := p.Parse([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if items[2].HasDate() {
		t.Fatalf("undated item reports date %v", items[2].PubDate)
	}
}

func TestParseMalformedDocument(t *testing.T) {
	t.Parallel()
	p := NewParser()
	_, err := p.Parse([]byte("this is not a feed"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type %T, want *ParseError", err)
	}
}

func TestParseAtom(t *testing.T) {
	t.Parallel()
	const atom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <entry>
    <title>Entry one</title>
    <link href="https://example.org/a1"/>
    <id>a1</id>
    <updated>2025-06-02T10:00:00Z</updated>
  </entry>
</feed>`

	p := NewParser()
	items, err := p.Parse([]byte(atom))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("parsed %d items, want 1", len(items))
	}
	if items[0].Field(FieldTitle) != "Entry one" {
		t.Fatalf("title = %q", items[0].Field(FieldTitle))
	}
	// Atom's updated timestamp backs PubDate when published is absent.
	if !items[0].HasDate() {
		t.Fatal("expected a date from <updated>")
	}
}
