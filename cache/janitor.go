package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically removes expired entries from a store.
type Janitor struct {
	store    Admin
	interval time.Duration
	log      zerolog.Logger
}

// NewJanitor returns a Janitor that sweeps store every interval.
func NewJanitor(store Admin, interval time.Duration, logger zerolog.Logger) *Janitor {
	return &Janitor{store: store, interval: interval, log: logger}
}

// Run sweeps until ctx is done. It always returns ctx.Err().
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.store.CleanupExpired(); n > 0 {
				j.log.Debug().Int("removed", n).Msg("janitor sweep")
			}
		}
	}
}
