// Package trigger starts auto-match scans from events published by the CV
// and job services.
//
// Events arrive on Redis pub/sub (EVENT_CV_ANALYZED, EVENT_JOB_PUBLISHED)
// or on a RabbitMQ queue whose messages carry the channel name in "type".
// Both sources feed the same Router.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/model"
)

const (
	ChannelCVAnalyzed   = "EVENT_CV_ANALYZED"
	ChannelJobPublished = "EVENT_JOB_PUBLISHED"
)

// Channels lists every channel the Router understands.
var Channels = []string{ChannelCVAnalyzed, ChannelJobPublished}

// Scanner is the subset of scanner.Scanner the triggers call.
type Scanner interface {
	ScanCVAnalysis(ctx context.Context, cvAnalysisID int64) ([]model.Match, error)
	ScanJob(ctx context.Context, jobID int64) ([]model.Match, error)
}

// Event is the JSON body of a trigger message. Type is only read from
// queue messages; pub/sub messages take it from the channel.
type Event struct {
	Type         string `json:"type,omitempty"`
	CVAnalysisID int64  `json:"cvAnalysisId,omitempty"`
	JobID        int64  `json:"jobId,omitempty"`
}

// ErrUnknownChannel is returned for messages on channels the Router does
// not handle.
var ErrUnknownChannel = errors.New("unknown trigger channel")

// Invalidator drops cached direct scores. cache.Scores implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, candidateID, jobID int64) error
}

// Router decodes trigger messages and runs the matching scan.
type Router struct {
	scan  Scanner
	cache Invalidator
	log   *zap.Logger
}

// NewRouter returns a Router calling scan.
func NewRouter(scan Scanner, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{scan: scan, log: log.With(zap.String("component", "trigger"))}
}

// WithInvalidator makes the Router drop the cached score of every pair a
// scan matched, since the event means the CV or the job changed.
func (r *Router) WithInvalidator(inv Invalidator) *Router {
	r.cache = inv
	return r
}

// Handle decodes body and runs the scan selected by channel. It returns the
// number of matches created.
func (r *Router) Handle(ctx context.Context, channel string, body []byte) (int, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return 0, fmt.Errorf("decode %s: %w", channel, err)
	}
	if channel == "" {
		channel = ev.Type
	}

	var (
		created []model.Match
		err     error
	)
	switch channel {
	case ChannelCVAnalyzed:
		if ev.CVAnalysisID <= 0 {
			return 0, fmt.Errorf("%s: missing cvAnalysisId", channel)
		}
		created, err = r.scan.ScanCVAnalysis(ctx, ev.CVAnalysisID)
	case ChannelJobPublished:
		if ev.JobID <= 0 {
			return 0, fmt.Errorf("%s: missing jobId", channel)
		}
		created, err = r.scan.ScanJob(ctx, ev.JobID)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", channel, err)
	}
	r.invalidate(ctx, created)
	r.log.Info("trigger handled",
		zap.String("channel", channel),
		zap.Int64("cv_analysis_id", ev.CVAnalysisID),
		zap.Int64("job_id", ev.JobID),
		zap.Int("created", len(created)),
	)
	return len(created), nil
}

func (r *Router) invalidate(ctx context.Context, matches []model.Match) {
	if r.cache == nil {
		return
	}
	for _, m := range matches {
		if err := r.cache.Invalidate(ctx, m.CandidateID, m.JobID); err != nil {
			r.log.Warn("score cache invalidation failed",
				zap.Int64("candidate_id", m.CandidateID), zap.Int64("job_id", m.JobID), zap.Error(err))
		}
	}
}

// Retryable reports whether a Handle error is transient: the scan failed on
// storage or a dependency, so the message is worth delivering again.
// Malformed messages, unknown channels and missing records are not.
func Retryable(err error) bool {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == apperr.CodeInternal || ae.Code == apperr.CodeUnavailable
}

// handleLogged runs Handle and logs a failure instead of returning it.
func (r *Router) handleLogged(ctx context.Context, channel string, body []byte) {
	if _, err := r.Handle(ctx, channel, body); err != nil {
		r.log.Warn("trigger failed", zap.String("channel", channel), zap.Error(err))
	}
}
