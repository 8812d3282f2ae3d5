// Package config provides 12-factor configuration management for fileshuttle.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags on the serve command can override the shuttle settings.
//
// Configuration Sections:
//   - Shuttle: exported root, RPC socket, health socket, idle timeout
//   - Media: media index and thumbnail cache locations
//   - Admin: admin HTTP listener (health JSON and metrics)
//   - Logging: Log level and output format
//   - RateLimit: admin endpoint rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Exporting %s on %s\n", cfg.Shuttle.Root, cfg.Shuttle.Socket)
//
// Environment Variables:
//   - SHUTTLE_ROOT, SHUTTLE_SOCKET, SHUTTLE_HEALTH_SOCKET, SHUTTLE_IDLE_TIMEOUT
//   - MEDIA_INDEX_DIR, MEDIA_THUMB_DIR, MEDIA_THUMB_SIZE, MEDIA_EXCLUDE
//   - ADMIN_ADDR
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
