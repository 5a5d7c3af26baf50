package config

// Config is the full application configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "5m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Updater  UpdaterConfig  `json:"updater"`
	Composer ComposerConfig `json:"composer"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is the Telegram long-poll timeout. Default "10s".
	PollTimeout string `json:"poll_timeout,omitempty"`
	// RatePerSec caps outbound sends across all broadcasts. Default 10.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level,omitempty"` // TRACE..ERROR, default INFO
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the source store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./rsscat.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // "sqlite" (default) or "memory"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// UpdaterConfig controls the poll loop and feed fetching.
//
// Defaults (when fields are omitted/zero):
//   - interval: "5m"
//   - fetch_timeout: "10s"
//   - validate_timeout: fetch_timeout
//   - concurrency: 4
type UpdaterConfig struct {
	Interval     string `json:"interval,omitempty"`
	FetchTimeout string `json:"fetch_timeout,omitempty"`
	// ValidateTimeout bounds the connectivity probe when adding a source.
	ValidateTimeout string `json:"validate_timeout,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"`
	// RSSHubBackend replaces the public rsshub.app host in source URLs with a
	// self-hosted instance, e.g. "https://rsshub.example.org".
	RSSHubBackend string `json:"rsshub_backend,omitempty"`
}

// ComposerConfig selects which item fields go into outbound messages.
// Fields render in list order.
type ComposerConfig struct {
	Fields []ComposerField `json:"fields"`
	// EnableXImgsKey turns "<base>_imgs" field keys into image extraction
	// over the base field's HTML.
	EnableXImgsKey bool `json:"enable_x_imgs_key,omitempty"`
	// ToImg renders the description as rich HTML instead of escaped text.
	ToImg bool `json:"to_img,omitempty"`
}

type ComposerField struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// DefaultComposerFields is used when the composer section is omitted.
func DefaultComposerFields() []ComposerField {
	return []ComposerField{
		{Key: "title", Enabled: true},
		{Key: "link", Enabled: true},
		{Key: "description", Enabled: false},
	}
}
