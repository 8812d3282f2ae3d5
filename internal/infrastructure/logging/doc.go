// Package logging provides structured logging using uber/zap.
//
// This package offers two modes:
//   - Production: sampled JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Both write to stderr by default; stdout is reserved for client commands
// that stream file contents.
//
// Field Conventions:
//   - op: RPC operation name (list_children, open_file, ...)
//   - path: path argument as received, before resolution
//   - instance: shuttle service instance ID
//   - request_id: per-call ULID
//
// Example Usage:
//
//	logger := logging.NewOrNop("info", false)
//	logger.Info("Shuttle bound", logging.Instance(id))
//	logger.Debug("Open failed", logging.Op("open_file"), zap.Error(err))
package logging
