package deployment

import (
	"context"
	"errors"
	"time"
)

// MaxErrorMessageLength bounds the persisted failure message, in runes.
const MaxErrorMessageLength = 2000

// ErrNotFound is returned by repositories when no deployment has the given id.
var ErrNotFound = errors.New("deployment not found")

// Deployment is one build request tracked end-to-end.
type Deployment struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"projectId,omitempty"`
	UserID        string     `json:"userId,omitempty"`
	Status        Status     `json:"status"`
	DeploymentURL string     `json:"deploymentUrl,omitempty"`
	SourcePath    string     `json:"s3SourcePath,omitempty"`
	BuildPath     string     `json:"s3BuildPath,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	// BuildDurationSeconds is set together with CompletedAt.
	BuildDurationSeconds *int64 `json:"buildDurationSeconds,omitempty"`
	ErrorMessage         string `json:"errorMessage,omitempty"`
}

// Repository persists deployment records.
type Repository interface {
	Save(ctx context.Context, d *Deployment) error
	// FindByID returns ErrNotFound when the record is absent.
	FindByID(ctx context.Context, id string) (*Deployment, error)
}

// New creates a QUEUED deployment whose source tree lives under sourcePath.
func New(id, sourcePath string, now time.Time) *Deployment {
	return &Deployment{
		ID:         id,
		Status:     StatusQueued,
		SourcePath: sourcePath,
		CreatedAt:  now.UTC(),
	}
}

// Transition moves the deployment to a non-terminal status.
func (d *Deployment) Transition(to Status) error {
	if err := checkTransition(d.Status, to); err != nil {
		return err
	}
	d.Status = to
	return nil
}

// MarkSucceeded records a successful build. The duration is measured from
// startedAt to now and is stored together with the completion time.
func (d *Deployment) MarkSucceeded(now, startedAt time.Time, buildPath string) error {
	if err := checkTransition(d.Status, StatusBuildSuccess); err != nil {
		return err
	}
	d.Status = StatusBuildSuccess
	d.BuildPath = buildPath
	d.ErrorMessage = ""
	d.complete(now, startedAt)
	return nil
}

// MarkFailed records a failed build with a bounded error message.
func (d *Deployment) MarkFailed(now, startedAt time.Time, message string) error {
	if err := checkTransition(d.Status, StatusBuildFailed); err != nil {
		return err
	}
	d.Status = StatusBuildFailed
	d.ErrorMessage = TruncateMessage(message)
	d.complete(now, startedAt)
	return nil
}

// Duration returns the recorded build duration, or zero when none is set.
func (d *Deployment) Duration() time.Duration {
	if d.BuildDurationSeconds == nil {
		return 0
	}
	return time.Duration(*d.BuildDurationSeconds) * time.Second
}

func (d *Deployment) complete(now, startedAt time.Time) {
	completed := now.UTC()
	seconds := int64(now.Sub(startedAt) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	d.CompletedAt = &completed
	d.BuildDurationSeconds = &seconds
}

// TruncateMessage bounds msg to MaxErrorMessageLength runes.
func TruncateMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxErrorMessageLength {
		return msg
	}
	return string(r[:MaxErrorMessageLength])
}
