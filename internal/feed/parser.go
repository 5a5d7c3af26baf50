package feed

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parser turns raw RSS/Atom/JSON-feed bytes into an ordered item sequence.
// It is safe for concurrent use.
type Parser struct {
	fp *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{fp: gofeed.NewParser()}
}

// Parse extracts items from body, preserving document order. A malformed
// document yields *ParseError.
func (p *Parser) Parse(body []byte) ([]Item, error) {
	parsed, err := p.fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, gi := range parsed.Items {
		if gi == nil {
			continue
		}
		items = append(items, convertItem(gi))
	}
	return items, nil
}

func convertItem(gi *gofeed.Item) Item {
	it := Item{Fields: make(map[string]string, 8)}

	setField(it.Fields, FieldTitle, gi.Title)
	setField(it.Fields, FieldLink, gi.Link)
	setField(it.Fields, FieldDescription, gi.Description)
	setField(it.Fields, FieldContent, gi.Content)
	setField(it.Fields, FieldGUID, gi.GUID)
	setField(it.Fields, FieldAuthor, authorName(gi))
	if len(gi.Categories) > 0 {
		setField(it.Fields, "categories", strings.Join(gi.Categories, ", "))
	}

	// Description doubles as content when the feed provides no content block,
	// mirroring how most readers treat RSS 2.0.
	if it.Fields[FieldContent] == "" && it.Fields[FieldDescription] != "" {
		it.Fields[FieldContent] = it.Fields[FieldDescription]
	}

	// Feed-specific extension fields keep their own names; they never
	// overwrite the well-known ones above.
	for k, v := range gi.Custom {
		if _, taken := it.Fields[k]; !taken {
			setField(it.Fields, k, v)
		}
	}

	// An unparsable or missing date leaves PubDate zero; the watermark
	// tracker excludes such items from the "new" set.
	if gi.PublishedParsed != nil {
		it.PubDate = *gi.PublishedParsed
	} else if gi.UpdatedParsed != nil {
		it.PubDate = *gi.UpdatedParsed
	}

	return it
}

func authorName(gi *gofeed.Item) string {
	if gi.Author != nil && gi.Author.Name != "" {
		return gi.Author.Name
	}
	if len(gi.Authors) > 0 && gi.Authors[0] != nil {
		return gi.Authors[0].Name
	}
	return ""
}

func setField(fields map[string]string, key, val string) {
	if val == "" {
		return
	}
	fields[key] = val
}
