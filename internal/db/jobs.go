package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Job states.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// ErrJobNotFound is returned by GetJob for unknown ids.
var ErrJobNotFound = errors.New("job not found")

type ParseJob struct {
	ID           uuid.UUID
	Kind         string
	URL          string
	Status       string
	Result       []byte
	ErrorCode    pgtype.Text
	ErrorMessage pgtype.Text
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

const jobColumns = `id, kind, url, status, result, error_code, error_message, created_at, updated_at`

func scanJob(row pgx.Row) (ParseJob, error) {
	var j ParseJob
	err := row.Scan(
		&j.ID,
		&j.Kind,
		&j.URL,
		&j.Status,
		&j.Result,
		&j.ErrorCode,
		&j.ErrorMessage,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	return j, err
}

const createJob = `-- name: CreateJob :one
INSERT INTO parse_jobs (id, kind, url, status)
VALUES ($1, $2, $3, 'pending')
RETURNING ` + jobColumns

type CreateJobParams struct {
	ID   uuid.UUID
	Kind string
	URL  string
}

func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) (ParseJob, error) {
	return scanJob(q.db.QueryRow(ctx, createJob, arg.ID, arg.Kind, arg.URL))
}

const getJob = `-- name: GetJob :one
SELECT ` + jobColumns + ` FROM parse_jobs WHERE id = $1`

func (q *Queries) GetJob(ctx context.Context, id uuid.UUID) (ParseJob, error) {
	j, err := scanJob(q.db.QueryRow(ctx, getJob, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ParseJob{}, ErrJobNotFound
	}
	return j, err
}

const markJobRunning = `-- name: MarkJobRunning :exec
UPDATE parse_jobs SET status = 'running', updated_at = NOW() WHERE id = $1`

func (q *Queries) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, markJobRunning, id)
	return err
}

const completeJob = `-- name: CompleteJob :exec
UPDATE parse_jobs
SET status = 'succeeded', result = $2, error_code = NULL, error_message = NULL, updated_at = NOW()
WHERE id = $1`

type CompleteJobParams struct {
	ID     uuid.UUID
	Result []byte
}

func (q *Queries) CompleteJob(ctx context.Context, arg CompleteJobParams) error {
	_, err := q.db.Exec(ctx, completeJob, arg.ID, arg.Result)
	return err
}

const failJob = `-- name: FailJob :exec
UPDATE parse_jobs
SET status = 'failed', error_code = $2, error_message = $3, updated_at = NOW()
WHERE id = $1`

type FailJobParams struct {
	ID           uuid.UUID
	ErrorCode    pgtype.Text
	ErrorMessage pgtype.Text
}

func (q *Queries) FailJob(ctx context.Context, arg FailJobParams) error {
	_, err := q.db.Exec(ctx, failJob, arg.ID, arg.ErrorCode, arg.ErrorMessage)
	return err
}
