package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueries(t *testing.T) *Queries {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	// A second run must be a no-op.
	require.NoError(t, Migrate(ctx, pool))
	return New(pool)
}

func TestJobLifecycle(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()

	id := uuid.New()
	job, err := q.CreateJob(ctx, CreateJobParams{ID: id, Kind: "flight", URL: "https://www.google.com/flights"})
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobPending, job.Status)
	assert.Nil(t, job.Result)
	assert.True(t, job.CreatedAt.Valid)

	require.NoError(t, q.MarkJobRunning(ctx, id))
	job, err = q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, JobRunning, job.Status)

	require.NoError(t, q.CompleteJob(ctx, CompleteJobParams{ID: id, Result: []byte(`{"flight_number":"AF123"}`)}))
	job, err = q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, job.Status)
	assert.JSONEq(t, `{"flight_number":"AF123"}`, string(job.Result))
	assert.False(t, job.ErrorCode.Valid)
}

func TestFailJob(t *testing.T) {
	q := testQueries(t)
	ctx := context.Background()

	id := uuid.New()
	_, err := q.CreateJob(ctx, CreateJobParams{ID: id, Kind: "lodging", URL: "https://www.airbnb.com/rooms/1"})
	require.NoError(t, err)

	require.NoError(t, q.FailJob(ctx, FailJobParams{
		ID:           id,
		ErrorCode:    pgtype.Text{String: "URL_UNREACHABLE", Valid: true},
		ErrorMessage: pgtype.Text{String: "HTTP 503", Valid: true},
	}))

	job, err := q.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, "URL_UNREACHABLE", job.ErrorCode.String)
	assert.Equal(t, "HTTP 503", job.ErrorMessage.String)
}

func TestGetJobNotFound(t *testing.T) {
	q := testQueries(t)
	_, err := q.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}
