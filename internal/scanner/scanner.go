// Package scanner discovers new matches when a CV analysis or a job
// posting appears.
//
// Both entry points walk their pairs sequentially. A pair is skipped when a
// match already exists; otherwise it is scored and, when the score clears
// the job's threshold, persisted and announced to both sides. The storage
// unique constraint is the only guard against racing scans: a duplicate
// insert is counted and skipped.
package scanner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/notify"
	"jobmate/match-service/internal/scoring"
)

// ChannelMatchCreated is the Redis channel new matches are announced on.
const ChannelMatchCreated = "EVENT_MATCH_CREATED"

// Store is the persistence the scanner reads pairs from and writes matches to.
type Store interface {
	FindMatch(ctx context.Context, candidateID, jobID int64) (*model.Match, error)
	SaveMatch(ctx context.Context, m *model.Match) (*model.Match, error)
	MarkNotified(ctx context.Context, id int64, side model.Side, at time.Time) error
	ListActiveJobs(ctx context.Context, autoMatchOnly bool) ([]model.Job, error)
	ListLatestSnapshots(ctx context.Context) ([]model.CandidateSnapshot, error)
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	GetSnapshot(ctx context.Context, cvAnalysisID int64) (*model.CandidateSnapshot, error)
}

// Notifier announces a created match to both sides.
type Notifier interface {
	MatchCreated(ctx context.Context, ev notify.MatchCreated) notify.Delivery
}

// Publisher mirrors created matches to other services.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Options tunes a Scanner. DefaultThreshold applies to jobs without their
// own threshold. TTL, when positive, sets ExpiresAt on created matches.
type Options struct {
	DefaultThreshold float64
	TTL              time.Duration
}

// DefaultThreshold is the fallback minimum score used when Options leaves
// it unset.
const DefaultThreshold = 60.0

// Scanner runs auto-match sweeps.
type Scanner struct {
	store  Store
	notify Notifier
	pub    Publisher
	opts   Options
	log    *zap.Logger
	now    func() time.Time
}

// New returns a Scanner. notifier and pub may be nil.
func New(store Store, notifier Notifier, pub Publisher, opts Options, log *zap.Logger) *Scanner {
	if opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = DefaultThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{
		store:  store,
		notify: notifier,
		pub:    pub,
		opts:   opts,
		log:    log.With(zap.String("component", "scanner")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// summary counts the outcome of every pair visited by one scan.
type summary struct {
	created, existing, below, duplicates, failed int
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeExisting
	outcomeBelow
	outcomeDuplicate
	outcomeFailed
)

func (s *summary) add(o outcome) {
	switch o {
	case outcomeCreated:
		s.created++
	case outcomeExisting:
		s.existing++
	case outcomeBelow:
		s.below++
	case outcomeDuplicate:
		s.duplicates++
	case outcomeFailed:
		s.failed++
	}
}

// ScanJobsForCandidate matches a candidate's CV snapshot against every
// active auto-match job. It never fails: listing errors and per-pair errors
// are logged and the matches created so far are returned.
func (s *Scanner) ScanJobsForCandidate(ctx context.Context, cs model.CandidateSnapshot) []model.Match {
	log := s.log.With(
		zap.Int64("candidate_id", cs.Candidate.ID),
		zap.Int64("cv_analysis_id", cs.Snapshot.ID),
	)
	jobs, err := s.store.ListActiveJobs(ctx, true)
	if err != nil {
		log.Error("list active jobs failed", zap.Error(err))
		return []model.Match{}
	}
	log.Info("scanning jobs for candidate", zap.Int("jobs", len(jobs)))

	var sum summary
	created := make([]model.Match, 0)
	for i := range jobs {
		if ctx.Err() != nil {
			log.Warn("scan interrupted", zap.Error(ctx.Err()))
			break
		}
		m, o := s.pair(ctx, &cs, &jobs[i])
		sum.add(o)
		if m != nil {
			created = append(created, *m)
		}
	}
	s.logSummary(log, sum)
	return created
}

// ScanCandidatesForJob matches job against the latest CV snapshot of every
// candidate. Like ScanJobsForCandidate it never fails.
func (s *Scanner) ScanCandidatesForJob(ctx context.Context, job model.Job) []model.Match {
	log := s.log.With(zap.Int64("job_id", job.ID))
	snaps, err := s.store.ListLatestSnapshots(ctx)
	if err != nil {
		log.Error("list latest snapshots failed", zap.Error(err))
		return []model.Match{}
	}
	log.Info("scanning candidates for job", zap.String("title", job.Title), zap.Int("candidates", len(snaps)))

	var sum summary
	created := make([]model.Match, 0)
	for i := range snaps {
		if ctx.Err() != nil {
			log.Warn("scan interrupted", zap.Error(ctx.Err()))
			break
		}
		m, o := s.pair(ctx, &snaps[i], &job)
		sum.add(o)
		if m != nil {
			created = append(created, *m)
		}
	}
	s.logSummary(log, sum)
	return created
}

// ScanCVAnalysis resolves a CV analysis id and runs ScanJobsForCandidate.
func (s *Scanner) ScanCVAnalysis(ctx context.Context, cvAnalysisID int64) ([]model.Match, error) {
	cs, err := s.store.GetSnapshot(ctx, cvAnalysisID)
	if err != nil {
		return nil, lookupErr("scanner.ScanCVAnalysis", "cv analysis not found", err)
	}
	return s.ScanJobsForCandidate(ctx, *cs), nil
}

// ScanJob resolves a job id and runs ScanCandidatesForJob.
func (s *Scanner) ScanJob(ctx context.Context, jobID int64) ([]model.Match, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, lookupErr("scanner.ScanJob", "job not found", err)
	}
	return s.ScanCandidatesForJob(ctx, *job), nil
}

func lookupErr(op, notFound string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.E(apperr.CodeNotFound, op, notFound, err)
	}
	return apperr.E(apperr.CodeInternal, op, "storage failure", err)
}

func (s *Scanner) pair(ctx context.Context, cs *model.CandidateSnapshot, job *model.Job) (*model.Match, outcome) {
	log := s.log.With(zap.Int64("candidate_id", cs.Candidate.ID), zap.Int64("job_id", job.ID))

	existing, err := s.store.FindMatch(ctx, cs.Candidate.ID, job.ID)
	if err != nil {
		log.Warn("lookup existing match failed", zap.Error(err))
		return nil, outcomeFailed
	}
	if existing != nil {
		return nil, outcomeExisting
	}

	res := scoring.ScoreVariant(scoring.VariantAutoMatch, &cs.Candidate, &cs.Snapshot, job)
	threshold := job.Threshold(s.opts.DefaultThreshold)
	if res.Overall < threshold {
		log.Debug("below threshold", zap.Float64("score", res.Overall), zap.Float64("threshold", threshold))
		return nil, outcomeBelow
	}

	now := s.now()
	m := &model.Match{
		CandidateID:      cs.Candidate.ID,
		JobID:            job.ID,
		Score:            res.Overall,
		Breakdown:        res.Breakdown,
		Reasons:          res.Reasons,
		Concerns:         res.Concerns,
		Status:           model.StatusNew,
		IsAutoMatched:    true,
		AlgorithmVersion: scoring.AlgorithmVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if cs.Snapshot.ID != 0 {
		id := cs.Snapshot.ID
		m.CVAnalysisID = &id
	}
	if s.opts.TTL > 0 {
		exp := now.Add(s.opts.TTL)
		m.ExpiresAt = &exp
	}

	saved, err := s.store.SaveMatch(ctx, m)
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateMatch) {
			log.Info("match created concurrently, skipping")
			return nil, outcomeDuplicate
		}
		log.Warn("save match failed", zap.Error(err))
		return nil, outcomeFailed
	}
	log.Info("match created", zap.Int64("match_id", saved.ID), zap.Float64("score", saved.Score))

	s.announce(ctx, log, saved, cs, job)
	return saved, outcomeCreated
}

// announce dispatches notifications and stamps the sides that were reached.
// Failures are logged; the match stays created.
func (s *Scanner) announce(ctx context.Context, log *zap.Logger, m *model.Match, cs *model.CandidateSnapshot, job *model.Job) {
	if s.notify != nil {
		d := s.notify.MatchCreated(ctx, notify.MatchCreated{Match: *m, Candidate: cs.Candidate, Job: *job})
		s.stamp(ctx, log, m, model.SideCompany, d.Company)
		s.stamp(ctx, log, m, model.SideCandidate, d.Candidate)
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, ChannelMatchCreated, m); err != nil {
			log.Warn("publish match created failed", zap.Int64("match_id", m.ID), zap.Error(err))
		}
	}
}

func (s *Scanner) stamp(ctx context.Context, log *zap.Logger, m *model.Match, side model.Side, sendErr error) {
	if sendErr != nil {
		log.Warn("notification failed",
			zap.Int64("match_id", m.ID),
			zap.String("side", string(side)),
			zap.Error(sendErr),
		)
		return
	}
	at := s.now()
	if err := s.store.MarkNotified(ctx, m.ID, side, at); err != nil {
		log.Warn("mark notified failed", zap.Int64("match_id", m.ID), zap.String("side", string(side)), zap.Error(err))
		return
	}
	if side == model.SideCompany {
		m.CompanyNotifiedAt = &at
	} else {
		m.CandidateNotifiedAt = &at
	}
}

func (s *Scanner) logSummary(log *zap.Logger, sum summary) {
	log.Info("scan finished",
		zap.Int("created", sum.created),
		zap.Int("existing", sum.existing),
		zap.Int("below_threshold", sum.below),
		zap.Int("duplicates", sum.duplicates),
		zap.Int("failed", sum.failed),
	)
}
