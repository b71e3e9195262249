package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/model"
)

// JournalStore persists submission records.
type JournalStore interface {
	Insert(ctx context.Context, rec *model.SubmissionRecord) error
}

// JournalWorker consumes the submission journal queue and writes each record
// to PostgreSQL.
type JournalWorker struct {
	store JournalStore
	rdb   *redis.Client
	queue string
	retry time.Duration
	log   zerolog.Logger
}

// NewJournalWorker creates a new JournalWorker.
func NewJournalWorker(store JournalStore, rdb *redis.Client, log zerolog.Logger) *JournalWorker {
	return &JournalWorker{
		store: store,
		rdb:   rdb,
		queue: config.WorkerKey.SubmissionJournalQueue,
		retry: 5 * time.Second,
		log:   log.With().Str("component", "journal_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *JournalWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *JournalWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	rec, err := decodeRecord(result[1])
	if err != nil {
		w.log.Error().Err(err).Msg("Dropping unreadable journal record")
		return
	}

	if err := w.store.Insert(ctx, rec); err != nil {
		w.log.Error().Err(err).
			Str("question_id", rec.QuestionID).
			Str("kind", string(rec.Kind)).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, w.queue, result[1])
		time.Sleep(w.retry)
		return
	}

	w.log.Debug().
		Int64("id", rec.ID).
		Str("question_id", rec.QuestionID).
		Str("status", string(rec.Status)).
		Msg("Journal record stored")
}

// drain persists all remaining records before shutdown.
func (w *JournalWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			break
		}

		rec, err := decodeRecord(raw)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain decode error")
			continue
		}

		if err := w.store.Insert(ctx, rec); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, w.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func decodeRecord(raw string) (*model.SubmissionRecord, error) {
	var rec model.SubmissionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode journal record: %w", err)
	}
	if rec.QuestionID == "" {
		return nil, errors.New("decode journal record: missing question id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return &rec, nil
}
