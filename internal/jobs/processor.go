package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/tripparse/internal/apierr"
	"github.com/briangreenhill/tripparse/internal/db"
	"github.com/briangreenhill/tripparse/travel"
)

// Parser is satisfied by *parser.Parser.
type Parser interface {
	Parse(ctx context.Context, kind travel.DataType, link string) (travel.Record, error)
}

// Processor handles parse tasks on the worker.
type Processor struct {
	parser Parser
	store  Store
	log    zerolog.Logger
}

func NewProcessor(p Parser, store Store, logger zerolog.Logger) *Processor {
	return &Processor{parser: p, store: store, log: logger.With().Str("component", "worker").Logger()}
}

// Register mounts the processor on mux for every parse task type.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskParseFlight, p)
	mux.Handle(TaskParseLodging, p)
}

// ProcessTask implements asynq.Handler.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	kind, ok := KindForTask(t.Type())
	if !ok {
		return fmt.Errorf("unknown task type %q: %w", t.Type(), asynq.SkipRetry)
	}
	var pl ParsePayload
	if err := json.Unmarshal(t.Payload(), &pl); err != nil {
		p.log.Error().Err(err).Msg("bad payload")
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(pl.JobID)
	if err != nil {
		return fmt.Errorf("job id %q: %v: %w", pl.JobID, err, asynq.SkipRetry)
	}
	log := p.log.With().Str("job_id", pl.JobID).Str("kind", string(kind)).Logger()

	if err := p.store.MarkJobRunning(ctx, id); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	log.Info().Str("url", pl.URL).Msg("parse start")
	start := time.Now()
	rec, err := p.parser.Parse(ctx, kind, pl.URL)
	duration := time.Since(start)

	if err != nil {
		code := apierr.Code(err)
		if Retryable(code) && !lastAttempt(ctx) {
			log.Warn().Err(err).Str("code", code).Dur("duration", duration).Msg("retryable parse error")
			return err
		}
		log.Error().Err(err).Str("code", code).Dur("duration", duration).Msg("parse failed, dropping job")
		if ferr := p.store.FailJob(ctx, db.FailJobParams{
			ID:           id,
			ErrorCode:    pgtype.Text{String: code, Valid: true},
			ErrorMessage: pgtype.Text{String: err.Error(), Valid: true},
		}); ferr != nil {
			return fmt.Errorf("record job failure: %w", ferr)
		}
		return nil
	}

	result, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode result: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.store.CompleteJob(ctx, db.CompleteJobParams{ID: id, Result: result}); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	log.Info().Dur("duration", duration).Msg("parse done")
	return nil
}

// Retryable reports whether a job failing with code may succeed later.
func Retryable(code string) bool {
	switch code {
	case apierr.CodeRateLimited, apierr.CodeTimeout, apierr.CodeURLUnreachable,
		apierr.CodeLLMRateLimited, apierr.CodeLLMTimeout, apierr.CodeLLMAPIError:
		return true
	}
	return false
}

// lastAttempt is true on the final retry, or when not running under asynq.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	limit, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= limit
}
