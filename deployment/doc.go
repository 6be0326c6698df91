// Package deployment holds the deployment record mutated by the build worker,
// its status state machine, and the persistence port the worker depends on.
package deployment
