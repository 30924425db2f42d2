package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs the outcome of a single media fetch
func LogRequest(l Logger, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("Media request completed", fields)
	case statusCode >= 500:
		l.ErrorWithFields("Media request server error", fields)
	default:
		l.WarnWithFields("Media request failed", fields)
	}
}

// LogDownload logs an archived media file
func LogDownload(l Logger, username, filename string, ordinal, size int) {
	l.WithFields(map[string]interface{}{
		"username": username,
		"file":     filename,
		"ordinal":  ordinal,
		"bytes":    size,
	}).Info("Download completed")
}

// LogSkip logs a candidate that was dropped from the archive
func LogSkip(l Logger, url, reason string, err error) {
	l.WithFields(map[string]interface{}{
		"url":    url,
		"reason": reason,
	}).WithError(err).Warn("Download skipped")
}

// LogStage logs the start of a pipeline stage
func LogStage(l Logger, stage string, fields map[string]interface{}) {
	child := l.WithField("stage", stage)
	if len(fields) > 0 {
		child = child.WithFields(fields)
	}
	child.Info("Stage started")
}

// LogStageDone logs the end of a pipeline stage with its duration
func LogStageDone(l Logger, stage string, started time.Time, fields map[string]interface{}) {
	child := l.WithFields(map[string]interface{}{
		"stage":    stage,
		"duration": time.Since(started),
	})
	if len(fields) > 0 {
		child = child.WithFields(fields)
	}
	child.Info("Stage finished")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	z := zerolog.Nop()
	return &z
}
