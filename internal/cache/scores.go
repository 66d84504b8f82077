package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/scoring"
)

// DefaultScoreTTL bounds how stale a cached score may be after a profile or
// job edit.
const DefaultScoreTTL = 10 * time.Minute

// ScoreSource loads the records a direct score is computed from.
type ScoreSource interface {
	GetCandidateSnapshot(ctx context.Context, candidateID int64) (*model.CandidateSnapshot, error)
	GetJob(ctx context.Context, id int64) (*model.Job, error)
}

// Scores computes direct candidate/job scores and caches them. Cache errors
// are logged and fall through to computation.
type Scores struct {
	src   ScoreSource
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewScores returns a Scores. A nil cache disables caching; ttl <= 0 selects
// DefaultScoreTTL.
func NewScores(src ScoreSource, c Cache, ttl time.Duration, log *zap.Logger) *Scores {
	if ttl <= 0 {
		ttl = DefaultScoreTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scores{src: src, cache: c, ttl: ttl, log: log.With(zap.String("component", "score_cache"))}
}

// ScoreKey is the cache key of a direct score.
func ScoreKey(candidateID, jobID int64) string {
	return fmt.Sprintf("match:score:v%s:%d:%d", scoring.AlgorithmVersion, candidateID, jobID)
}

// Direct returns the direct-variant score of a candidate for a job.
func (s *Scores) Direct(ctx context.Context, candidateID, jobID int64) (scoring.Result, error) {
	const op = "cache.Direct"
	if candidateID <= 0 || jobID <= 0 {
		return scoring.Result{}, apperr.E(apperr.CodeInvalidArgument, op, "candidateId and jobId are required", nil)
	}
	key := ScoreKey(candidateID, jobID)

	if s.cache != nil {
		var cached scoring.Result
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.Warn("score cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	cs, err := s.src.GetCandidateSnapshot(ctx, candidateID)
	if err != nil {
		return scoring.Result{}, lookupErr(op, "candidate not found", err)
	}
	job, err := s.src.GetJob(ctx, jobID)
	if err != nil {
		return scoring.Result{}, lookupErr(op, "job not found", err)
	}
	res := scoring.ScoreVariant(scoring.VariantDirect, &cs.Candidate, &cs.Snapshot, job)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, res, s.ttl); err != nil {
			s.log.Warn("score cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

// Invalidate drops the cached score of a pair.
func (s *Scores) Invalidate(ctx context.Context, candidateID, jobID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, ScoreKey(candidateID, jobID))
}

func lookupErr(op, notFound string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.E(apperr.CodeNotFound, op, notFound, err)
	}
	return apperr.E(apperr.CodeInternal, op, "storage failure", err)
}
