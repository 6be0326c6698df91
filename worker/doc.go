// Package worker runs the build queue consumer.
//
// Each iteration pops one deployment id, loads its record, downloads the
// source into a private workspace, screens it, builds it in the sandbox and
// uploads the output. Every failure after the record is loaded ends in a
// persisted BUILD_FAILED status; only a missing record drops a job without
// a trace beyond the log. The workspace is removed on every path.
//
// Usage:
//
//	w := worker.New(logger, q, repo, store, validator, executor)
//	err := w.Run(ctx) // returns when ctx is cancelled
package worker
