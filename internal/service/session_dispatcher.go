package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quizfaber/quizserver/config"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/queue"
	"github.com/quizfaber/quizserver/internal/repository"
	"github.com/rs/zerolog/log"
)

// SessionDispatcher decouples the high-frequency session update endpoint from
// the database. Updates are enqueued by handlers and written back in small
// batches over one borrowed connection, so a burst of answers never piles up
// connections from the pool.
type SessionDispatcher struct {
	queue *queue.Queue[dto.SessionUpdateRequest]
	store repository.SessionStore
	cfg   config.Dispatcher
}

func NewSessionDispatcher(cfg *config.Config, store repository.SessionStore) *SessionDispatcher {
	return &SessionDispatcher{
		queue: queue.New[dto.SessionUpdateRequest](),
		store: store,
		cfg:   cfg.Dispatcher,
	}
}

// Enqueue accepts a session update for eventual write-back. It never blocks.
func (d *SessionDispatcher) Enqueue(req dto.SessionUpdateRequest) {
	d.queue.Enqueue(req)
	log.Debug().Uint("sessionID", req.SessionID).Int("queued", d.queue.Len()).Msg("session update queued")
}

// Pending reports how many updates wait for write-back.
func (d *SessionDispatcher) Pending() int {
	return d.queue.Len()
}

// Run drains the queue until ctx is cancelled. After an idle poll it waits the
// full poll interval; after a drained batch only the short after-run delay, so
// a backlog clears quickly without busy-looping.
func (d *SessionDispatcher) Run(ctx context.Context) {
	delay := d.cfg.PollInterval
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", d.queue.Len()).Msg("session dispatcher stopped")
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

// processBatch takes at most QueueLimit updates off the queue and applies them
// in arrival order. Updates enqueued while the batch is running wait for the
// next one. A failing update is logged and skipped, it never blocks the rest
// of the batch.
func (d *SessionDispatcher) processBatch(ctx context.Context) int {
	batch := d.queue.TakeBatch(d.cfg.QueueLimit)
	if len(batch) == 0 {
		return 0
	}
	err := d.store.Connection(ctx, func(tx repository.SessionTx) error {
		for _, upd := range batch {
			if err := applyUpdate(tx, upd); err != nil {
				log.Error().Err(err).Uint("sessionID", upd.SessionID).Msg("session write-back failed, update dropped")
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("batch", len(batch)).Msg("session write-back batch failed")
	}
	return len(batch)
}

func applyUpdate(tx repository.SessionTx, upd dto.SessionUpdateRequest) error {
	if upd.SessionData == nil {
		return fmt.Errorf("session %d: update carries no data", upd.SessionID)
	}
	person, err := tx.FindPerson(upd.UserIdentity)
	if err != nil {
		return fmt.Errorf("session %d: resolve owner %q: %w", upd.SessionID, upd.UserIdentity, err)
	}
	if !person.IsEnabled {
		return fmt.Errorf("session %d: owner %q is disabled", upd.SessionID, upd.UserIdentity)
	}
	stored, err := tx.GetSessionData(upd.SessionID)
	if err != nil {
		return fmt.Errorf("load session %d: %w", upd.SessionID, err)
	}
	if stored == nil || *stored == "" {
		return fmt.Errorf("session %d: no stored state to merge into", upd.SessionID)
	}
	merged, err := MergeSessionData(*stored, upd.SessionData)
	if err != nil {
		return fmt.Errorf("merge session %d: %w", upd.SessionID, err)
	}
	if err := tx.SetSessionData(upd.SessionID, merged, time.Now()); err != nil {
		return fmt.Errorf("store session %d: %w", upd.SessionID, err)
	}
	return nil
}

var jsonNull = json.RawMessage("null")

// MergeSessionData folds a partial update into the stored session blob. Only
// the addressed question slot, the clock fields and the current page change;
// every other field of the blob is preserved untouched. The server never
// interprets question content, values stay raw JSON end to end.
func MergeSessionData(current string, upd *dto.SessionDataUpdate) (string, error) {
	if current == "" {
		return "", fmt.Errorf("no stored blob to merge into")
	}
	blob := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(current), &blob); err != nil {
		return "", fmt.Errorf("stored blob is not a JSON object: %w", err)
	}

	if upd.QuestionIndex < 0 {
		return "", fmt.Errorf("negative question index %d", upd.QuestionIndex)
	}
	var questions []json.RawMessage
	if raw, ok := blob["questions"]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &questions); err != nil {
			return "", fmt.Errorf("stored questions field is not an array: %w", err)
		}
	}
	for len(questions) <= upd.QuestionIndex {
		questions = append(questions, jsonNull)
	}
	if upd.Question != nil {
		questions[upd.QuestionIndex] = upd.Question
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return "", err
	}
	blob["questions"] = encoded

	// Elapsed time and the current page always track the update, even when the
	// client sends nothing for them. A stale clock on recovery is worse than a
	// reset one.
	blob["time"] = rawOrNull(upd.Time)
	blob["currentQuestionPage"] = rawOrNull(upd.CurrentQuestionPage)
	if upd.UpdateTime != nil {
		blob["updateTime"] = upd.UpdateTime
	}
	if upd.ShadowDeltaTime != nil {
		blob["shadowDeltaTime"] = upd.ShadowDeltaTime
	}

	out, err := json.Marshal(blob)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return jsonNull
	}
	return raw
}
