// Package main is the entry point for the buildbox build worker.
//
// The worker consumes deployment ids from the build queue, downloads each
// project from object storage, screens it with the security validator,
// builds it inside a locked-down container and uploads the output. An
// optional MCP operator surface (stdio or HTTP) runs alongside the loop.
//
// The application uses Uber's fx framework for dependency injection and lifecycle
// management, with zap for structured logging and viper for configuration.
//
// Usage:
//
//	buildworker [--config path/to/buildbox.yaml]
package main
