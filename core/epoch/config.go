package epoch

import "fmt"

// Config describes how wall-clock time maps onto the discrete epoch counter
// that gates daily caps, quota resets and oracle staleness.
type Config struct {
	// Seconds is the length of a single epoch. The value must be greater
	// than zero.
	Seconds uint64
}

// DefaultConfig returns the production default of one epoch per UTC day.
func DefaultConfig() Config {
	return Config{Seconds: 24 * 60 * 60}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Seconds == 0 {
		return fmt.Errorf("epoch length must be greater than zero")
	}
	return nil
}

// At converts a unix timestamp into its epoch number. Timestamps before the
// unix epoch clamp to zero.
func (c Config) At(unix int64) uint64 {
	if unix <= 0 || c.Seconds == 0 {
		return 0
	}
	return uint64(unix) / c.Seconds
}
