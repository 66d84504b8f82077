package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/model"
)

// ChannelStatusChanged is the Redis channel status moves are published on.
const ChannelStatusChanged = "EVENT_MATCH_STATUS_CHANGED"

// Store is the persistence the lifecycle needs. ChangeMatch must apply the
// change with per-field conditional writes and return the derived row.
type Store interface {
	GetMatch(ctx context.Context, id int64) (*model.Match, error)
	ChangeMatch(ctx context.Context, id int64, c Change) (*model.Match, Transition, error)
	ListMatches(ctx context.Context, f model.MatchFilter) ([]model.Match, error)
	MatchStats(ctx context.Context, f model.MatchFilter) (model.MatchStats, error)
}

// Publisher fans events out to other services. Failures are logged only.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// StatusChanged is the payload published on ChannelStatusChanged.
type StatusChanged struct {
	Type             string       `json:"type"`
	MatchID          int64        `json:"matchId"`
	CandidateID      int64        `json:"candidateId"`
	JobID            int64        `json:"jobId"`
	Side             model.Side   `json:"side"`
	From             model.Status `json:"from"`
	To               model.Status `json:"to"`
	IsMutualInterest bool         `json:"isMutualInterest"`
}

// Service applies view, action and favorite events to stored matches. It has
// no dependency on a transport.
type Service struct {
	store Store
	pub   Publisher
	log   *zap.Logger
	now   func() time.Time
}

// NewService returns a Service. pub may be nil.
func NewService(store Store, pub Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		pub:   pub,
		log:   log.With(zap.String("component", "lifecycle")),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a match. When viewer is non-empty the match is marked viewed
// by that side first.
func (s *Service) Get(ctx context.Context, id int64, viewer string) (*model.Match, error) {
	if viewer == "" {
		m, err := s.store.GetMatch(ctx, id)
		if err != nil {
			return nil, storeErr("lifecycle.Get", err)
		}
		return m, nil
	}
	return s.View(ctx, id, viewer)
}

// View marks the match viewed by side. Repeated views are no-ops.
func (s *Service) View(ctx context.Context, id int64, side string) (*model.Match, error) {
	sd, err := model.ParseSide(side)
	if err != nil {
		return nil, apperr.E(apperr.CodeInvalidArgument, "lifecycle.View", err.Error(), nil)
	}
	return s.change(ctx, "lifecycle.View", id, Change{Side: sd, View: true, At: s.now()})
}

// Act records side's action with optional notes.
func (s *Service) Act(ctx context.Context, id int64, side, action string, notes *string) (*model.Match, error) {
	sd, err := model.ParseSide(side)
	if err != nil {
		return nil, apperr.E(apperr.CodeInvalidArgument, "lifecycle.Act", err.Error(), nil)
	}
	a, err := model.ParseAction(action)
	if err != nil {
		return nil, apperr.E(apperr.CodeInvalidArgument, "lifecycle.Act", err.Error(), nil)
	}
	return s.change(ctx, "lifecycle.Act", id, Change{Side: sd, Action: a, Notes: notes, At: s.now()})
}

// Favorite sets side's favorite flag.
func (s *Service) Favorite(ctx context.Context, id int64, side string, favorite bool) (*model.Match, error) {
	sd, err := model.ParseSide(side)
	if err != nil {
		return nil, apperr.E(apperr.CodeInvalidArgument, "lifecycle.Favorite", err.Error(), nil)
	}
	return s.change(ctx, "lifecycle.Favorite", id, Change{Side: sd, Favorite: &favorite, At: s.now()})
}

// List returns matches ordered by score then recency.
func (s *Service) List(ctx context.Context, f model.MatchFilter) ([]model.Match, error) {
	if f.Status != "" {
		if _, err := model.ParseStatus(string(f.Status)); err != nil {
			return nil, apperr.E(apperr.CodeInvalidArgument, "lifecycle.List", err.Error(), nil)
		}
	}
	if f.MinScore < 0 || f.MinScore > 100 {
		return nil, apperr.E(apperr.CodeInvalidArgument, "lifecycle.List", "minScore must be between 0 and 100", nil)
	}
	matches, err := s.store.ListMatches(ctx, f)
	if err != nil {
		return nil, storeErr("lifecycle.List", err)
	}
	return matches, nil
}

// Stats returns aggregate counters for the filter.
func (s *Service) Stats(ctx context.Context, f model.MatchFilter) (model.MatchStats, error) {
	st, err := s.store.MatchStats(ctx, f)
	if err != nil {
		return model.MatchStats{}, storeErr("lifecycle.Stats", err)
	}
	return st, nil
}

func (s *Service) change(ctx context.Context, op string, id int64, c Change) (*model.Match, error) {
	m, tr, err := s.store.ChangeMatch(ctx, id, c)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if tr.Changed() {
		s.log.Info("match status changed",
			zap.Int64("match_id", m.ID),
			zap.String("side", string(c.Side)),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
		)
		s.publish(ctx, m, c.Side, tr)
	}
	return m, nil
}

func (s *Service) publish(ctx context.Context, m *model.Match, side model.Side, tr Transition) {
	if s.pub == nil {
		return
	}
	ev := StatusChanged{
		Type:             ChannelStatusChanged,
		MatchID:          m.ID,
		CandidateID:      m.CandidateID,
		JobID:            m.JobID,
		Side:             side,
		From:             tr.From,
		To:               tr.To,
		IsMutualInterest: m.IsMutualInterest,
	}
	if err := s.pub.Publish(ctx, ChannelStatusChanged, ev); err != nil {
		s.log.Warn("publish status change failed", zap.Int64("match_id", m.ID), zap.Error(err))
	}
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.E(apperr.CodeNotFound, op, "match not found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.E(apperr.CodeUnavailable, op, "request cancelled", err)
	}
	return apperr.E(apperr.CodeInternal, op, "storage failure", err)
}
