// Package jobs runs parse requests in the background through asynq and
// records their outcome in Postgres.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/tripparse/internal/apierr"
	"github.com/briangreenhill/tripparse/internal/db"
	"github.com/briangreenhill/tripparse/parser"
	"github.com/briangreenhill/tripparse/travel"
)

const (
	maxRetry    = 3
	taskTimeout = 5 * time.Minute
)

// Store is the job persistence used by Service and Processor.
// *db.Queries satisfies it.
type Store interface {
	CreateJob(ctx context.Context, arg db.CreateJobParams) (db.ParseJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (db.ParseJob, error)
	MarkJobRunning(ctx context.Context, id uuid.UUID) error
	CompleteJob(ctx context.Context, arg db.CompleteJobParams) error
	FailJob(ctx context.Context, arg db.FailJobParams) error
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service creates jobs and hands them to the worker queue.
type Service struct {
	store Store
	queue Enqueuer
	log   zerolog.Logger
}

func NewService(store Store, queue Enqueuer, logger zerolog.Logger) *Service {
	return &Service{store: store, queue: queue, log: logger.With().Str("component", "jobs").Logger()}
}

// Submit records a pending job for link and enqueues it.
func (s *Service) Submit(ctx context.Context, kind travel.DataType, link string) (db.ParseJob, error) {
	if _, err := parser.ValidateURL(link); err != nil {
		return db.ParseJob{}, err
	}

	id := uuid.New()
	task, err := NewParseTask(kind, id, link)
	if err != nil {
		return db.ParseJob{}, err
	}

	job, err := s.store.CreateJob(ctx, db.CreateJobParams{ID: id, Kind: string(kind), URL: link})
	if err != nil {
		return db.ParseJob{}, fmt.Errorf("create job: %w", err)
	}

	info, err := s.queue.EnqueueContext(ctx, task,
		asynq.Queue(QueueParse),
		asynq.TaskID(id.String()),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(taskTimeout),
	)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", id.String()).Msg("enqueue failed")
		failErr := s.store.FailJob(ctx, db.FailJobParams{
			ID:           id,
			ErrorCode:    pgtype.Text{String: apierr.CodeUnavailable, Valid: true},
			ErrorMessage: pgtype.Text{String: err.Error(), Valid: true},
		})
		if failErr != nil {
			s.log.Error().Err(failErr).Str("job_id", id.String()).Msg("marking job failed")
		}
		return db.ParseJob{}, fmt.Errorf("enqueue job: %w", err)
	}

	s.log.Info().Str("job_id", id.String()).Str("queue", info.Queue).Str("kind", string(kind)).Msg("enqueued parse job")
	return job, nil
}

// Get returns the job with id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (db.ParseJob, error) {
	return s.store.GetJob(ctx, id)
}
