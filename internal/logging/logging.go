// Package logging builds the zap loggers used across the binaries.
package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New returns a production zap logger at the given level. Unknown levels
// fall back to info; a logger that cannot be built degrades to a no-op.
func New(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := ParseLevel(level); err == nil {
		cfg.Level = lvl
	}

	// stdout belongs to the host process; diagnostics go to stderr.
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ParseLevel parses a case-insensitive zap level name. An empty name is info.
func ParseLevel(level string) (zap.AtomicLevel, error) {
	return zap.ParseAtomicLevel(strings.ToLower(level))
}
