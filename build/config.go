package build

import (
	"github.com/btcsuite/btclog/v2"
)

const (
	callSiteOff   = "off"
	callSiteShort = "short"
	callSiteLong  = "long"
)

// LoggerConfig holds options for the console logger.
type LoggerConfig struct {
	// NoTimestamps omits timestamps from log lines.
	NoTimestamps bool

	// CallSite includes the call-site of each log line, one of "off",
	// "short" or "long".
	CallSite string

	// Style styles the log output with colors and embellishments, useful
	// when eyeballing trace output interactively.
	Style bool
}

// DefaultLoggerConfig returns the default console logger config options.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		CallSite: callSiteOff,
	}
}

// HandlerOptions returns the set of btclog.HandlerOptions that the state of
// the config struct translates to.
func (cfg *LoggerConfig) HandlerOptions() []btclog.HandlerOption {
	var opts []btclog.HandlerOption

	if cfg.NoTimestamps {
		opts = append(opts, btclog.WithNoTimestamp())
	}
	if cfg.Style {
		opts = append(opts, btclog.WithStyledOutput())
	}

	switch cfg.CallSite {
	case callSiteShort:
		opts = append(opts, btclog.WithCallerFlags(btclog.Lshortfile))
	case callSiteLong:
		opts = append(opts, btclog.WithCallerFlags(btclog.Llongfile))
	}

	return opts
}
