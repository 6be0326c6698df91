package deployment

import (
	"errors"
	"fmt"
)

// Status represents the lifecycle state of a deployment.
type Status string

const (
	StatusQueued       Status = "QUEUED"
	StatusUploading    Status = "UPLOADING"
	StatusUploaded     Status = "UPLOADED"
	StatusBuilding     Status = "BUILDING"
	StatusBuildSuccess Status = "BUILD_SUCCESS"
	StatusBuildFailed  Status = "BUILD_FAILED"
	StatusReady        Status = "READY"
	StatusFailed       Status = "FAILED"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions lists the moves the pipeline may make. BUILDING may be
// re-entered so that a manually re-enqueued job left behind by a crashed
// worker can be rebuilt.
var validTransitions = map[Status][]Status{
	StatusQueued:       {StatusUploading, StatusUploaded, StatusBuilding, StatusBuildFailed, StatusFailed},
	StatusUploading:    {StatusUploaded, StatusBuilding, StatusBuildFailed, StatusFailed},
	StatusUploaded:     {StatusBuilding, StatusBuildFailed, StatusFailed},
	StatusBuilding:     {StatusBuilding, StatusBuildSuccess, StatusBuildFailed},
	StatusBuildSuccess: {StatusReady, StatusFailed},
	StatusBuildFailed:  {},
	StatusReady:        {},
	StatusFailed:       {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether the build worker must leave a deployment in this
// status alone. BUILD_SUCCESS is terminal for the worker even though the
// serving stage may later promote it to READY.
func (s Status) Terminal() bool {
	switch s {
	case StatusBuildSuccess, StatusBuildFailed, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a deployment may move from one status to another.
// Statuses outside the table, including empty, are set by upstream stages;
// the worker may start or fail a build from them.
func CanTransition(from, to Status) bool {
	if !from.Valid() {
		return to == StatusBuilding || to == StatusBuildFailed
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
