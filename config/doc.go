// Package config provides application configuration management.
//
// The config package loads buildbox.yaml through viper, applies BUILDBOX_*
// environment overrides and validates the result. Secrets are read from the
// environment only, never from the file.
//
// Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Queue backend: %s\n", cfg.Queue.Backend)
package config
