// Package security implements the pre-flight screen run on every source tree
// before it is handed to the sandbox.
//
// The screen enforces size ceilings (aggregate and per file, ignoring
// node_modules and .git) and runs an advisory scan of text files for
// suspicious substrings. Scan findings are logged and reported, never
// enforced: only size ceilings can reject a tree.
//
// Usage:
//
//	v := security.NewValidator(logger, security.DefaultLimits())
//	report, err := v.Validate(ctx, "/tmp/build-123")
package security
