// Package logging sets up elastickilla's structured logging: slog records
// written as JSON or text to stderr, to a size-rotated file under
// ~/.elastickilla/logs/, or both. It also reads those files back for the
// logs command.
package logging
