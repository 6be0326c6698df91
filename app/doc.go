// Package app wires buildbox collaborators together.
//
// Infra owns the shared connections (Redis, Postgres, SQLite) selected by the
// configuration and hands out the queue and repository built on them. The
// binaries either call OpenInfra directly (buildctl) or install Module into
// an fx application (buildworker), which closes the connections on stop.
package app
