package darc

import "log/slog"

// readerConfig holds Reader configuration.
type readerConfig struct {
	key    []byte
	logger *slog.Logger
}

// Option configures a Reader.
type Option func(*readerConfig)

// WithKey sets the 16-byte key Decode uses for encrypted entries.
func WithKey(key []byte) Option {
	return func(cfg *readerConfig) {
		cfg.key = append([]byte(nil), key...)
	}
}

// WithLogger sets the logger for Reader operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *readerConfig) {
		cfg.logger = logger
	}
}
