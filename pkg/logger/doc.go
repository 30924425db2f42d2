// Package logger wraps zerolog behind a small structured logging interface.
//
// Console output goes to stderr so that the interactive prompt and progress
// lines on stdout stay readable. When a log file is configured, the same
// events are also written to it as JSON.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.WithField("url", u).Warn("Download skipped")
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to discard them.
package logger
