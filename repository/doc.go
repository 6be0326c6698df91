// Package repository implements deployment.Repository.
//
// Postgres is the primary store and owns the schema through embedded,
// ordered migrations. SQLite serves single-node installs with the same
// schema created on open. Redis keeps each record as JSON under
// "deployment:<id>" for deployments that share the queue's Redis.
package repository
