// Package logging provides concrete implementations of the etl.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes leveled text lines through logrus, stderr by default
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
