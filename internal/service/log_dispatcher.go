package service

import (
	"context"
	"time"

	"github.com/quizfaber/quizserver/config"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/queue"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/rs/zerolog/log"
)

// LogDispatcher persists audit log lines in the background, batching them the
// same way the session dispatcher batches session updates. When database
// logging is disabled the dispatcher accepts and silently discards entries,
// callers never need to check.
type LogDispatcher struct {
	queue   *queue.Queue[model.WebLog]
	store   repository.LogStore
	cfg     config.Dispatcher
	enabled bool
}

func NewLogDispatcher(cfg *config.Config, store repository.LogStore) *LogDispatcher {
	return &LogDispatcher{
		queue:   queue.New[model.WebLog](),
		store:   store,
		cfg:     cfg.Dispatcher,
		enabled: cfg.Dispatcher.DbLogEnabled,
	}
}

// Log enqueues one audit line. It never blocks the caller.
func (d *LogDispatcher) Log(userIdentity string, level int, message string) {
	if !d.enabled {
		return
	}
	d.queue.Enqueue(model.WebLog{
		UserIdentity:  userIdentity,
		SeverityLevel: level,
		Message:       message,
		DateCreated:   time.Now(),
	})
}

func (d *LogDispatcher) Pending() int {
	return d.queue.Len()
}

// Run drains the queue until ctx is cancelled.
func (d *LogDispatcher) Run(ctx context.Context) {
	if !d.enabled {
		log.Info().Msg("database logging disabled, log dispatcher idle")
		<-ctx.Done()
		return
	}
	delay := d.cfg.PollInterval
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", d.queue.Len()).Msg("log dispatcher stopped")
			return
		case <-time.After(delay):
		}
		if n := d.processBatch(ctx); n > 0 {
			delay = d.cfg.AfterRunDelay
		} else {
			delay = d.cfg.PollInterval
		}
	}
}

func (d *LogDispatcher) processBatch(ctx context.Context) int {
	batch := d.queue.TakeBatch(d.cfg.LogQueueLimit)
	if len(batch) == 0 {
		return 0
	}
	err := d.store.Connection(ctx, func(tx repository.LogTx) error {
		for i := range batch {
			if err := tx.InsertLog(&batch[i]); err != nil {
				log.Error().Err(err).Str("user", batch[i].UserIdentity).Msg("audit log write failed, line dropped")
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("batch", len(batch)).Msg("audit log batch failed")
	}
	return len(batch)
}
