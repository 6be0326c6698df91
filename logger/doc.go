// Package logger provides structured logging capabilities.
//
// The logger package builds the application's zap logger from the logging
// section of the configuration: JSON with ISO8601 timestamps in production,
// colored console output in development.
//
// Usage:
//
//	log, err := logger.New("production", "info")
//	if err != nil {
//	    panic(err)
//	}
//	logger.ForDeployment(log, id).Info("build started")
package logger
