package config

import (
	"fmt"
	"strings"
	"time"
)

// Durations in the config file are Go duration strings ("10s", "5m") so the
// YAML stays hand-editable. An empty value means unset and parses to zero,
// letting the caller pick its own default. Negatives are rejected outright:
// every duration here (poll interval, fetch timeout, sqlite busy timeout) is
// a wait of some kind.

func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf(`%s: %q is not a duration (use values like "30s" or "5m"): %w`, path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def for the unset (zero) case.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
