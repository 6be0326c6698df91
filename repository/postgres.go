package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver

	"github.com/isdmx/buildbox/builderr"
	"github.com/isdmx/buildbox/deployment"
)

// Postgres stores deployments in the deployments table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres repository on db. Run Migrate first.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const upsertPostgres = `
INSERT INTO deployments (
    id, project_id, user_id, status, deployment_url, s3_source_path, s3_build_path,
    error_message, created_at, completed_at, build_duration_seconds
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    project_id = EXCLUDED.project_id,
    user_id = EXCLUDED.user_id,
    status = EXCLUDED.status,
    deployment_url = EXCLUDED.deployment_url,
    s3_source_path = EXCLUDED.s3_source_path,
    s3_build_path = EXCLUDED.s3_build_path,
    error_message = EXCLUDED.error_message,
    completed_at = EXCLUDED.completed_at,
    build_duration_seconds = EXCLUDED.build_duration_seconds`

// Save inserts or replaces d. CreatedAt is kept from the first insert.
func (r *Postgres) Save(ctx context.Context, d *deployment.Deployment) error {
	_, err := r.db.ExecContext(ctx, upsertPostgres,
		d.ID,
		nullString(d.ProjectID),
		nullString(d.UserID),
		string(d.Status),
		nullString(d.DeploymentURL),
		nullString(d.SourcePath),
		nullString(d.BuildPath),
		nullString(d.ErrorMessage),
		d.CreatedAt.UTC(),
		d.CompletedAt,
		d.BuildDurationSeconds,
	)
	if err != nil {
		return classify("save deployment "+d.ID, err)
	}
	return nil
}

// FindByID loads the deployment with id.
func (r *Postgres) FindByID(ctx context.Context, id string) (*deployment.Deployment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, user_id, status, deployment_url, s3_source_path, s3_build_path,
       error_message, created_at, completed_at, build_duration_seconds
  FROM deployments WHERE id = $1`, id)

	var (
		d                                  deployment.Deployment
		status                             string
		projectID, userID, url, src, built sql.NullString
		errMsg                             sql.NullString
		completedAt                        sql.NullTime
		duration                           sql.NullInt64
	)
	if err := row.Scan(&d.ID, &projectID, &userID, &status, &url, &src, &built,
		&errMsg, &d.CreatedAt, &completedAt, &duration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deployment.ErrNotFound
		}
		return nil, classify("find deployment "+id, err)
	}

	d.Status = deployment.Status(status)
	d.ProjectID = projectID.String
	d.UserID = userID.String
	d.DeploymentURL = url.String
	d.SourcePath = src.String
	d.BuildPath = built.String
	d.ErrorMessage = errMsg.String
	d.CreatedAt = d.CreatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		d.CompletedAt = &t
	}
	if duration.Valid {
		secs := duration.Int64
		d.BuildDurationSeconds = &secs
	}
	return &d, nil
}

// classify wraps a database error. Connection, resource and operator
// intervention classes are reported as infrastructure errors.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code):
			return builderr.Infrastructure(err, "%s: database unavailable", op)
		case pgErr.Code == pgerrcode.CheckViolation:
			return fmt.Errorf("%s: rejected by schema constraint %s: %w", op, pgErr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
