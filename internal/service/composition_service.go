package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/model"
	"github.com/stemsi/qbank-console/internal/syllabus"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workflow"
)

// Composition session errors.
var (
	ErrSessionNotFound = errors.New("composition session not found")
	ErrNotSessionOwner = errors.New("composition session belongs to another user")
	ErrSessionBusy     = errors.New("composition session is busy")
)

// releaseLock deletes the lock only if it still holds our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// renewLock extends the lock only if it still holds our token.
var renewLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// CompositionService runs parent/child workflow sessions stored in Redis.
// Every operation loads the session, holds its lock for the duration and
// writes it back, so progress made before a failure is kept.
type CompositionService struct {
	rdb        *redis.Client
	submit     workflow.Submitter
	taxonomy   *TaxonomyService
	journal    *JournalService
	sessionTTL time.Duration
	lockTTL    time.Duration
	log        zerolog.Logger
}

// NewCompositionService creates a new CompositionService.
func NewCompositionService(
	rdb *redis.Client,
	bank workflow.Submitter,
	verify bool,
	taxonomy *TaxonomyService,
	journal *JournalService,
	cfg *config.Config,
	log zerolog.Logger,
) *CompositionService {
	return &CompositionService{
		rdb:        rdb,
		submit:     NewSubmitter(bank, verify),
		taxonomy:   taxonomy,
		journal:    journal,
		sessionTTL: cfg.SessionTTL,
		lockTTL:    cfg.LockTTL,
		log:        log.With().Str("component", "composition_service").Logger(),
	}
}

// Start opens a session owned by owner, optionally seeded with a parent draft.
func (s *CompositionService) Start(ctx context.Context, owner model.Creator, seed *model.QuestionDraft) (*workflow.Session, error) {
	sess := workflow.NewSession(uuid.New().String(), owner)
	if seed != nil {
		sess.SetDraft(*seed)
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", sess.ID).Str("owner_id", owner.ID).Msg("Composition session started")
	return sess, nil
}

// Get returns the session for its owner.
func (s *CompositionService) Get(ctx context.Context, id string, owner model.Creator) (*workflow.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Owner.ID != owner.ID {
		return nil, ErrNotSessionOwner
	}
	return sess, nil
}

// UpdateDraft replaces the session's current draft.
func (s *CompositionService) UpdateDraft(ctx context.Context, id string, owner model.Creator, d model.QuestionDraft) (*workflow.Session, error) {
	return s.withSession(ctx, id, owner, func(ctx context.Context, sess *workflow.Session) error {
		sess.SetDraft(d)
		return nil
	})
}

// ApplySelection runs a syllabus selection event against the current draft.
// changed is false when the event did not resolve.
func (s *CompositionService) ApplySelection(ctx context.Context, id string, owner model.Creator, ev syllabus.Event) (*workflow.Session, bool, error) {
	var changed bool
	sess, err := s.withSession(ctx, id, owner, func(ctx context.Context, sess *workflow.Session) error {
		d := sess.Draft.Clone()
		mapping := model.NewSyllabusMapping()
		if d.SyllabusMapping != nil {
			mapping = d.SyllabusMapping
		}

		var candidates []model.TaxonomyEntity
		if ev.Action == syllabus.ActionSelect {
			var err error
			candidates, err = s.taxonomy.Candidates(ctx, *mapping, ev.Level)
			if err != nil {
				return err
			}
		}

		next, ok := syllabus.Apply(*mapping, ev, candidates)
		if !ok {
			return nil
		}
		changed = true
		d.SyllabusMapping = &next
		sess.SetDraft(d)
		return nil
	})
	return sess, changed, err
}

// CreateParent submits the parent shell and moves the session to the child phase.
func (s *CompositionService) CreateParent(ctx context.Context, id string, owner model.Creator) (*workflow.Session, validator.Errors, error) {
	var errs validator.Errors
	sess, err := s.withSession(ctx, id, owner, func(ctx context.Context, sess *workflow.Session) error {
		var err error
		errs, err = sess.CreateParent(ctx, s.submit, s.notifier(ctx, sess))
		return err
	})
	return sess, errs, err
}

// AddChild validates the current child draft and appends it to the batch.
func (s *CompositionService) AddChild(ctx context.Context, id string, owner model.Creator) (*workflow.Session, validator.Errors, error) {
	var errs validator.Errors
	sess, err := s.withSession(ctx, id, owner, func(ctx context.Context, sess *workflow.Session) error {
		var err error
		errs, err = sess.AddChild()
		if err == nil && !errs.HasErrors() {
			last := sess.Children[len(sess.Children)-1]
			s.publish(ctx, workflow.Event{
				Type:       workflow.EventChildAdded,
				SessionID:  sess.ID,
				QuestionID: last.Draft.ID,
				ParentID:   last.Draft.ParentID,
				Total:      len(sess.Children),
				At:         time.Now(),
			})
		}
		return err
	})
	return sess, errs, err
}

// ResetChild discards the current child draft.
func (s *CompositionService) ResetChild(ctx context.Context, id string, owner model.Creator) (*workflow.Session, error) {
	return s.withSession(ctx, id, owner, func(ctx context.Context, sess *workflow.Session) error {
		return sess.ResetChild()
	})
}

// SubmitAll submits the accumulated children and patches the parent. A
// *workflow.BatchError is returned together with the session so callers can
// show how far the batch got.
func (s *CompositionService) SubmitAll(ctx context.Context, id string, owner model.Creator) (*workflow.Session, *workflow.Report, error) {
	var report *workflow.Report
	sess, err := s.withSession(ctx, id, owner, func(ctx context.Context, sess *workflow.Session) error {
		var err error
		report, err = sess.SubmitAllChildren(ctx, s.submit, s.notifier(ctx, sess))
		return err
	})

	var batchErr *workflow.BatchError
	switch {
	case errors.As(err, &batchErr):
		s.log.Warn().Err(err).
			Str("session_id", id).
			Int("submitted", batchErr.Submitted).
			Int("total", batchErr.Total).
			Msg("Child batch stopped")
	case err == nil:
		s.log.Info().
			Str("session_id", id).
			Str("parent_id", report.ParentID).
			Int("children", len(report.ChildIDs)).
			Msg("Child batch completed")
	}
	return sess, report, err
}

// Discard deletes the session. Nothing already submitted is affected.
func (s *CompositionService) Discard(ctx context.Context, id string, owner model.Creator) error {
	if _, err := s.Get(ctx, id, owner); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.CompositionSessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Subscribe opens the event stream of a session for its owner.
func (s *CompositionService) Subscribe(ctx context.Context, id string, owner model.Creator) (*redis.PubSub, error) {
	if _, err := s.Get(ctx, id, owner); err != nil {
		return nil, err
	}
	return s.rdb.Subscribe(ctx, config.CacheKey.CompositionEventsChannel(id)), nil
}

// withSession runs fn on the locked, freshly loaded session and stores the
// result even when fn fails. Remote steps are not cancelled when the caller
// goes away; a half-sent batch is worse than a late answer.
func (s *CompositionService) withSession(
	ctx context.Context,
	id string,
	owner model.Creator,
	fn func(context.Context, *workflow.Session) error,
) (*workflow.Session, error) {
	ctx = context.WithoutCancel(ctx)

	release, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Owner.ID != owner.ID {
		return nil, ErrNotSessionOwner
	}

	opErr := fn(ctx, sess)

	if err := s.save(ctx, sess); err != nil {
		if opErr != nil {
			return sess, errors.Join(opErr, err)
		}
		return sess, err
	}
	return sess, opErr
}

// notifier persists progress, publishes the event and journals submissions.
func (s *CompositionService) notifier(ctx context.Context, sess *workflow.Session) workflow.Notifier {
	return func(e workflow.Event) {
		if e.Type == workflow.EventChildSubmitted {
			if err := s.save(ctx, sess); err != nil {
				s.log.Error().Err(err).Str("session_id", sess.ID).Msg("Saving batch progress failed")
			}
		}
		s.journal.RecordEvent(ctx, e, sess.Owner.ID)
		s.publish(ctx, e)
	}
}

func (s *CompositionService) publish(ctx context.Context, e workflow.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.CompositionEventsChannel(e.SessionID), payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", e.SessionID).Msg("Publishing workflow event failed")
	}
}

func (s *CompositionService) lock(ctx context.Context, id string) (func(), error) {
	key := config.CacheKey.CompositionLockKey(id)
	token := uuid.New().String()

	ok, err := s.rdb.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	if !ok {
		return nil, ErrSessionBusy
	}

	// Held for as long as the operation runs, however many children it submits.
	stop := keepAlive(ctx, s.lockTTL/3, func(ctx context.Context) error {
		held, err := renewLock.Run(ctx, s.rdb, []string{key}, token, s.lockTTL.Milliseconds()).Int()
		if err != nil {
			return fmt.Errorf("renew session lock: %w", err)
		}
		if held == 0 {
			return errLockLost
		}
		return nil
	}, func(err error) {
		s.log.Warn().Err(err).Str("session_id", id).Msg("Keeping session lock alive failed")
	})

	return func() {
		stop()
		if err := releaseLock.Run(ctx, s.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("session_id", id).Msg("Releasing session lock failed")
		}
	}, nil
}

var errLockLost = errors.New("session lock is held by someone else")

// keepAlive calls renew every interval until the returned stop function is
// called. Failures are passed to onErr and do not stop the loop. stop waits
// for an in-flight renew to finish.
func keepAlive(ctx context.Context, interval time.Duration, renew func(context.Context) error, onErr func(error)) (stop func()) {
	if interval <= 0 {
		interval = time.Second
	}
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := renew(ctx); err != nil {
					onErr(err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			<-done
		})
	}
}

func (s *CompositionService) load(ctx context.Context, id string) (*workflow.Session, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.CompositionSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess workflow.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *CompositionService) save(ctx context.Context, sess *workflow.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.CompositionSessionKey(sess.ID), data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
