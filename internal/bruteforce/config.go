package bruteforce

import "time"

// Config holds the engine's thresholds. Defaults match the platform's
// documented behavior; tests construct tighter windows.
type Config struct {
	// ShortWindow is the trailing window for delay and captcha decisions.
	ShortWindow time.Duration
	// LongWindow is the trailing window for hard-block decisions.
	LongWindow time.Duration

	// CaptchaThreshold is the short-window failure count after which the
	// next attempt requires captcha verification.
	CaptchaThreshold int
	// BlockThreshold is the long-window failure count that triggers a block.
	BlockThreshold int
	// BlockDuration is how long a triggered SecurityBlock stays active.
	BlockDuration time.Duration
}

// DefaultConfig returns production thresholds.
func DefaultConfig() Config {
	return Config{
		ShortWindow:      15 * time.Minute,
		LongWindow:       time.Hour,
		CaptchaThreshold: 3,
		BlockThreshold:   20,
		BlockDuration:    24 * time.Hour,
	}
}

// DelayForCount maps a short-window failure count to the pause applied
// before the attempt proceeds. Monotone by construction.
func DelayForCount(count int) time.Duration {
	switch {
	case count < 3:
		return 0
	case count < 5:
		return 2 * time.Second
	case count < 10:
		return 5 * time.Second
	case count < 15:
		return 10 * time.Second
	default:
		return 30 * time.Second
	}
}
