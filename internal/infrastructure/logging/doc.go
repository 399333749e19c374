// Package logging provides structured logging for Wavelink.
//
// It wraps log/slog with configuration-driven handler selection and
// default service/version attributes, so every log line can be routed
// and filtered uniformly. Components derive their own loggers via
// Logger.With("component", ...).
package logging
