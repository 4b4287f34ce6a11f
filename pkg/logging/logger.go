package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	// RequestIDKey is the key used to store request IDs in context
	RequestIDKey contextKey = "request_id"

	// RequestIDHeader is the inbound header carrying a caller request id
	RequestIDHeader = "X-Request-Id"
)

// Config defines logging configuration
type Config struct {
	// Level is the logging level (debug, info, warn, error)
	Level string
	// Pretty determines if logs should be formatted for human readability
	Pretty bool
	// Output is where logs are written (defaults to os.Stdout)
	Output io.Writer
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: false,
		Output: os.Stdout,
	}
}

// Setup configures global logging based on the provided config
func Setup(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// FromContext extracts a logger with request context
func FromContext(ctx context.Context) zerolog.Logger {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return log.With().Str("request_id", requestID).Logger()
	}
	return log.Logger
}

// RequestLogger returns gin middleware that logs every request with its
// route, status and duration, and threads any caller request id through the
// request context.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		logger := log.With().
			Str("http.method", c.Request.Method).
			Str("http.path", c.Request.URL.Path).
			Logger()

		if requestID := c.GetHeader(RequestIDHeader); requestID != "" {
			logger = logger.With().Str("request_id", requestID).Logger()
			ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
			c.Request = c.Request.WithContext(ctx)
		}

		logger.Debug().Msg("Request received")

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logEvent := logger.Info()
		if status >= 400 {
			logEvent = logger.Error().Str("errors", c.Errors.String())
		}

		logEvent.Dur("duration", duration).
			Int("http.status", status).
			Msgf("Request completed in %v", duration)
	}
}
