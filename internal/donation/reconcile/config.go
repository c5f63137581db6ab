package reconcile

import "time"

// Config controls the payment reconciliation loop.
type Config struct {
	// PollInterval is the gap between scans; it doubles as the retry
	// backoff for donations that could not be verified.
	PollInterval time.Duration

	// ItemDelay spaces out gateway calls within one scan to stay under
	// the provider's rate limits.
	ItemDelay time.Duration

	// StartupDelay postpones the first scan until the process has settled.
	StartupDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Minute,
		ItemDelay:    time.Second,
		StartupDelay: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.ItemDelay < 0 {
		c.ItemDelay = defaults.ItemDelay
	}
	if c.StartupDelay < 0 {
		c.StartupDelay = defaults.StartupDelay
	}
	return c
}
