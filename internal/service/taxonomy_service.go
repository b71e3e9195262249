package service

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

// TaxonomySource lists taxonomy entities from the remote service.
type TaxonomySource interface {
	ListBoards(ctx context.Context) ([]model.Board, error)
	ListClasses(ctx context.Context, boardID string) ([]model.Class, error)
	ListSubjects(ctx context.Context, classID string) ([]model.Subject, error)
	ListChapters(ctx context.Context, subjectID string) ([]model.Chapter, error)
	ListTopics(ctx context.Context, chapterID string) ([]model.Topic, error)
}

// TaxonomyService is a read-through cache over the remote taxonomy lists.
// A nil Redis client disables caching.
type TaxonomyService struct {
	src TaxonomySource
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(src TaxonomySource, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *TaxonomyService {
	return &TaxonomyService{
		src: src,
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "taxonomy_service").Logger(),
	}
}

func (s *TaxonomyService) Boards(ctx context.Context) ([]model.Board, error) {
	return s.cached(ctx, model.LevelBoard, "", func(ctx context.Context) ([]model.TaxonomyEntity, error) {
		return s.src.ListBoards(ctx)
	})
}

func (s *TaxonomyService) Classes(ctx context.Context, boardID string) ([]model.Class, error) {
	return s.cached(ctx, model.LevelClass, boardID, func(ctx context.Context) ([]model.TaxonomyEntity, error) {
		return s.src.ListClasses(ctx, boardID)
	})
}

func (s *TaxonomyService) Subjects(ctx context.Context, classID string) ([]model.Subject, error) {
	return s.cached(ctx, model.LevelSubject, classID, func(ctx context.Context) ([]model.TaxonomyEntity, error) {
		return s.src.ListSubjects(ctx, classID)
	})
}

func (s *TaxonomyService) Chapters(ctx context.Context, subjectID string) ([]model.Chapter, error) {
	return s.cached(ctx, model.LevelChapter, subjectID, func(ctx context.Context) ([]model.TaxonomyEntity, error) {
		return s.src.ListChapters(ctx, subjectID)
	})
}

func (s *TaxonomyService) Topics(ctx context.Context, chapterID string) ([]model.Topic, error) {
	return s.cached(ctx, model.LevelTopic, chapterID, func(ctx context.Context) ([]model.TaxonomyEntity, error) {
		return s.src.ListTopics(ctx, chapterID)
	})
}

// TopicsForChapters returns the topics of every given chapter, first
// occurrence wins.
func (s *TaxonomyService) TopicsForChapters(ctx context.Context, chapterIDs []string) ([]model.Topic, error) {
	out := []model.Topic{}
	seen := make(map[string]bool)
	for _, id := range chapterIDs {
		topics, err := s.Topics(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range topics {
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// Candidates returns the entities a user may currently pick at level, given
// the selections already in m. Levels whose ancestor is unset have none.
func (s *TaxonomyService) Candidates(ctx context.Context, m model.SyllabusMapping, level model.TaxonomyLevel) ([]model.TaxonomyEntity, error) {
	switch level {
	case model.LevelBoard:
		return s.Boards(ctx)
	case model.LevelClass:
		if !m.Board.Selected() {
			return nil, nil
		}
		return s.Classes(ctx, m.Board.ID)
	case model.LevelSubject:
		if !m.Class.Selected() {
			return nil, nil
		}
		return s.Subjects(ctx, m.Class.ID)
	case model.LevelChapter:
		if !m.Subject.Selected() {
			return nil, nil
		}
		return s.Chapters(ctx, m.Subject.ID)
	case model.LevelTopic:
		return s.TopicsForChapters(ctx, m.SelectedChapterIDs())
	default:
		return nil, fmt.Errorf("unknown taxonomy level %q", level)
	}
}

func (s *TaxonomyService) cached(
	ctx context.Context,
	level model.TaxonomyLevel,
	parentID string,
	load func(context.Context) ([]model.TaxonomyEntity, error),
) ([]model.TaxonomyEntity, error) {
	if s.rdb == nil {
		return load(ctx)
	}

	key := config.CacheKey.TaxonomyListKey(string(level), parentID)

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var items []model.TaxonomyEntity
		if jsonErr := json.Unmarshal(data, &items); jsonErr == nil {
			return items, nil
		}
		s.log.Warn().Str("key", key).Msg("Discarding unreadable taxonomy cache entry")
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("key", key).Msg("Taxonomy cache read failed, using remote")
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(items); err == nil {
		if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Taxonomy cache write failed")
		}
	}
	return items, nil
}
