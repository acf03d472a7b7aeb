package beet

import "log/slog"

// CodecOption configures composed codecs (structs, data enums, reflection).
type CodecOption func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes construction and resolution diagnostics to logger.
// Nothing is logged by default.
func WithLogger(logger *slog.Logger) CodecOption {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []CodecOption) options {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
