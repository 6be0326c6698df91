package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/isdmx/buildbox/deployment"
)

// SQLite stores deployments in a local database file. Times are kept as
// Unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS deployments (
  id TEXT PRIMARY KEY,
  project_id TEXT,
  user_id TEXT,
  status TEXT NOT NULL,
  deployment_url TEXT,
  s3_source_path TEXT,
  s3_build_path TEXT,
  error_message TEXT,
  created_at INTEGER NOT NULL,
  completed_at INTEGER,
  build_duration_seconds INTEGER
);
`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Save inserts or replaces d. CreatedAt is kept from the first insert.
func (s *SQLite) Save(ctx context.Context, d *deployment.Deployment) error {
	var completed sql.NullInt64
	if d.CompletedAt != nil {
		completed = sql.NullInt64{Int64: d.CompletedAt.UnixMilli(), Valid: true}
	}
	var duration sql.NullInt64
	if d.BuildDurationSeconds != nil {
		duration = sql.NullInt64{Int64: *d.BuildDurationSeconds, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO deployments (
  id, project_id, user_id, status, deployment_url, s3_source_path, s3_build_path,
  error_message, created_at, completed_at, build_duration_seconds
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  project_id = excluded.project_id,
  user_id = excluded.user_id,
  status = excluded.status,
  deployment_url = excluded.deployment_url,
  s3_source_path = excluded.s3_source_path,
  s3_build_path = excluded.s3_build_path,
  error_message = excluded.error_message,
  completed_at = excluded.completed_at,
  build_duration_seconds = excluded.build_duration_seconds`,
		d.ID,
		nullString(d.ProjectID),
		nullString(d.UserID),
		string(d.Status),
		nullString(d.DeploymentURL),
		nullString(d.SourcePath),
		nullString(d.BuildPath),
		nullString(d.ErrorMessage),
		d.CreatedAt.UnixMilli(),
		completed,
		duration,
	)
	if err != nil {
		return fmt.Errorf("save deployment %s: %w", d.ID, err)
	}
	return nil
}

// FindByID loads the deployment with id.
func (s *SQLite) FindByID(ctx context.Context, id string) (*deployment.Deployment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, project_id, user_id, status, deployment_url, s3_source_path, s3_build_path,
       error_message, created_at, completed_at, build_duration_seconds
  FROM deployments WHERE id = ?`, id)

	var (
		d                                  deployment.Deployment
		status                             string
		createdMs                          int64
		projectID, userID, url, src, built sql.NullString
		errMsg                             sql.NullString
		completedMs, duration              sql.NullInt64
	)
	if err := row.Scan(&d.ID, &projectID, &userID, &status, &url, &src, &built,
		&errMsg, &createdMs, &completedMs, &duration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deployment.ErrNotFound
		}
		return nil, fmt.Errorf("find deployment %s: %w", id, err)
	}

	d.Status = deployment.Status(status)
	d.ProjectID = projectID.String
	d.UserID = userID.String
	d.DeploymentURL = url.String
	d.SourcePath = src.String
	d.BuildPath = built.String
	d.ErrorMessage = errMsg.String
	d.CreatedAt = time.UnixMilli(createdMs).UTC()
	if completedMs.Valid {
		t := time.UnixMilli(completedMs.Int64).UTC()
		d.CompletedAt = &t
	}
	if duration.Valid {
		secs := duration.Int64
		d.BuildDurationSeconds = &secs
	}
	return &d, nil
}
