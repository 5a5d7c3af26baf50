package feed

import (
	"html"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"rsscat/internal/transport"
)

const imgsKeySuffix = "_imgs"

// FieldFlag is one entry of the ordered composer field list.
type FieldFlag struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// ComposerConfig selects which item fields are rendered and how.
type ComposerConfig struct {
	// Fields are rendered in slice order; disabled entries are skipped.
	Fields []FieldFlag
	// EnableImgsKey treats keys ending in "_imgs" specially: the base field
	// (suffix stripped) is parsed as HTML and every <img src> becomes an
	// image attachment instead of raw text.
	EnableImgsKey bool
	// ToImg renders the description field as sanitized rich HTML for
	// downstream image rendering instead of escaped plain text.
	ToImg bool
}

// Composer renders feed items into outbound messages. Safe for concurrent
// use; Apply may swap the config while ticks are running.
type Composer struct {
	mu     sync.RWMutex
	cfg    ComposerConfig
	policy *bluemonday.Policy
}

func NewComposer(cfg ComposerConfig) *Composer {
	return &Composer{
		cfg: cfg,
		// UGC policy keeps benign formatting tags and strips scripts and
		// event handlers from feed-supplied HTML.
		policy: bluemonday.UGCPolicy(),
	}
}

func (c *Composer) Apply(cfg ComposerConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

// Compose renders one item according to the configured field list. Unknown
// or absent fields render as empty string and contribute nothing.
func (c *Composer) Compose(item Item) transport.Message {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	var b strings.Builder
	msg := transport.Message{}

	for _, f := range cfg.Fields {
		if !f.Enabled {
			continue
		}

		if cfg.EnableImgsKey && strings.HasSuffix(f.Key, imgsKeySuffix) {
			base := strings.TrimSuffix(f.Key, imgsKeySuffix)
			msg.Images = append(msg.Images, extractImageURLs(item.Field(base))...)
			continue
		}

		val := item.Field(f.Key)
		if val == "" {
			continue
		}

		if f.Key == FieldDescription && cfg.ToImg {
			b.WriteString(c.policy.Sanitize(val))
			b.WriteString("\n")
			msg.HTML = true
			continue
		}
		if f.Key == FieldDescription {
			val = html.EscapeString(stripTags(val))
		}
		b.WriteString(val)
		b.WriteString("\n")
	}

	msg.Text = b.String()
	return msg
}

// extractImageURLs pulls every <img src> out of an HTML fragment, in
// document order. Unparsable fragments yield nothing.
func extractImageURLs(htmlFragment string) []string {
	if strings.TrimSpace(htmlFragment) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlFragment))
	if err != nil {
		return nil
	}
	var urls []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && strings.TrimSpace(src) != "" {
			urls = append(urls, src)
		}
	})
	return urls
}

// stripTags reduces an HTML fragment to its text content. Descriptions are
// frequently HTML even in feeds that claim plain text.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
