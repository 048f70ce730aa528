package internal

import (
	"io"
	"log/slog"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	stdout io.Writer
}

// WithConfig pins the serve configuration, bypassing config file loading.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger overrides the logger normally built from the log-level flag.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithStdout redirects command output, primarily for tests.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}
