package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/workflow"
)

// JournalReader lists persisted submission records.
type JournalReader interface {
	List(ctx context.Context, f model.JournalFilter) ([]model.SubmissionRecord, error)
	Orphans(ctx context.Context, limit int) ([]model.OrphanedChild, error)
}

// JournalService queues submission records for the journal worker and reads
// them back. Recording never fails the submission it describes.
type JournalService struct {
	rdb    *redis.Client
	reader JournalReader
	log    zerolog.Logger
}

// NewJournalService creates a new JournalService.
func NewJournalService(rdb *redis.Client, reader JournalReader, log zerolog.Logger) *JournalService {
	return &JournalService{
		rdb:    rdb,
		reader: reader,
		log:    log.With().Str("component", "journal_service").Logger(),
	}
}

// Record enqueues rec. A nil service drops it.
func (s *JournalService) Record(ctx context.Context, rec model.SubmissionRecord) {
	if s == nil || s.rdb == nil {
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal journal record")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.SubmissionJournalQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).
			Str("question_id", rec.QuestionID).
			Str("status", string(rec.Status)).
			Msg("Journal enqueue failed")
	}
}

// RecordEvent journals workflow events that describe a remote submission.
func (s *JournalService) RecordEvent(ctx context.Context, e workflow.Event, submittedBy string) {
	kind, ok := submissionKind(e.Type)
	if !ok {
		return
	}

	rec := model.SubmissionRecord{
		QuestionID:  e.QuestionID,
		ParentID:    e.ParentID,
		SessionID:   e.SessionID,
		Kind:        kind,
		Status:      model.SubmissionSucceeded,
		SubmittedBy: submittedBy,
		CreatedAt:   e.At.UTC(),
	}
	if e.Failed() {
		rec.Status = model.SubmissionFailed
		rec.Error = e.Error
	}
	s.Record(ctx, rec)
}

func submissionKind(t workflow.EventType) (model.SubmissionKind, bool) {
	switch t {
	case workflow.EventParentCreated, workflow.EventParentFailed:
		return model.SubmissionParent, true
	case workflow.EventChildSubmitted, workflow.EventChildFailed:
		return model.SubmissionChild, true
	case workflow.EventParentPatched, workflow.EventParentPatchFailed:
		return model.SubmissionParentPatch, true
	default:
		return "", false
	}
}

// List returns journal records, newest first.
func (s *JournalService) List(ctx context.Context, f model.JournalFilter) ([]model.SubmissionRecord, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	return s.reader.List(ctx, f)
}

// Orphans lists children whose parent was never patched with their ids,
// the leftovers of batches that stopped part way.
func (s *JournalService) Orphans(ctx context.Context, limit int) ([]model.OrphanedChild, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.reader.Orphans(ctx, limit)
}
