// Package log provides the logging abstraction used by querybatch components.
//
// Components accept a [Logger] and never import a logging library directly.
// A zerolog-backed implementation and a no-op implementation are provided.
//
// # Usage
//
// Build a zerolog logger from CLI settings:
//
//	logger, err := log.NewZerologLogger("debug", "console", os.Stderr)
//	if err != nil {
//	    return err
//	}
//
// Or discard everything in tests:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Implement [Logger] to route batcher and transport logs into an existing
// logging setup:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
