package connmgr

import "time"

// Config carries the connection manager's process-wide tunables. Per-peer
// values (timeout, service name, handler) are supplied at Add time instead,
// since those vary per registered peer rather than per process.
type Config struct {
	// DefaultTimeout is used by callers that don't want to pick a per-peer
	// retry interval explicitly.
	DefaultTimeout time.Duration

	// JitterBound is the maximum magnitude of the uniform jitter applied, in
	// either direction, to the retry scheduled after a failed connect
	// attempt. Zero disables jitter (such retries land exactly at
	// now+timeout). Retries scheduled by a disconnect or error event always
	// land at now+timeout, without jitter.
	JitterBound time.Duration

	// ShutdownGracePeriod bounds how long Shutdown waits for the retry
	// worker to exit when the ctx passed to Shutdown carries no deadline
	// of its own. A ctx deadline, when present, always takes precedence.
	ShutdownGracePeriod time.Duration

	// QuietMode suppresses the informational disconnect/error log line
	// emitted by the dispatch adapter and the failure log line emitted by
	// a failed connect attempt, while still driving the state machine and
	// forwarding events to user handlers.
	QuietMode bool
}

// DefaultConfig returns the manager's default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      5 * time.Second,
		JitterBound:         2 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
		QuietMode:           false,
	}
}

// Validate reports whether c is usable.
func (c Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.JitterBound < 0 {
		return ErrInvalidConfig
	}
	if c.ShutdownGracePeriod <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
