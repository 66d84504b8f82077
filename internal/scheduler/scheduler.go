// Package scheduler runs the periodic match maintenance jobs: the expiry
// sweep and the optional reconciliation rescan of active jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"jobmate/match-service/internal/model"
)

// Expirer moves stale matches to expired.
type Expirer interface {
	ExpireMatches(ctx context.Context, now time.Time) (int64, error)
}

// JobLister returns the jobs a rescan walks.
type JobLister interface {
	ListActiveJobs(ctx context.Context, autoMatchOnly bool) ([]model.Job, error)
}

// Rescanner matches one job against every candidate.
type Rescanner interface {
	ScanCandidatesForJob(ctx context.Context, job model.Job) []model.Match
}

// Options holds the cron specs. An empty RescanSpec disables the rescan.
type Options struct {
	ExpirySpec string // e.g. "@every 1h"
	RescanSpec string // e.g. "@daily"
}

// Scheduler wraps robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	jobs    JobLister
	scan    Rescanner
	opts    Options
	log     *zap.Logger

	wg sync.WaitGroup // the startup sweep
}

// New creates a Scheduler. jobs and scan may be nil when no rescan is
// configured.
func New(expirer Expirer, jobs JobLister, scan Rescanner, opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "scheduler"))
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{log.Sugar()}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{log.Sugar()}))),
		expirer: expirer,
		jobs:    jobs,
		scan:    scan,
		opts:    opts,
		log:     log,
	}
}

// Start registers the jobs and starts the cron loop. One expiry sweep runs
// immediately so that matches that expired while the service was down are
// not left waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.opts.ExpirySpec != "" {
		if _, err := s.cron.AddFunc(s.opts.ExpirySpec, func() { s.Sweep(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc expiry: %w", err)
		}
	}
	if s.opts.RescanSpec != "" && s.jobs != nil && s.scan != nil {
		if _, err := s.cron.AddFunc(s.opts.RescanSpec, func() { s.Rescan(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc rescan: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info("cron started", zap.String("expiry", s.opts.ExpirySpec), zap.String("rescan", s.opts.RescanSpec))

	if s.opts.ExpirySpec != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Sweep(ctx)
		}()
	}
	return nil
}

// Stop shuts the cron loop down and waits for running jobs, the startup
// sweep included.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("cron stopped")
}

// Sweep expires every match whose expiry has passed. It returns the number
// of matches moved.
func (s *Scheduler) Sweep(ctx context.Context) int64 {
	n, err := s.expirer.ExpireMatches(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return 0
	}
	s.log.Info("expiry sweep complete", zap.Int64("expired", n))
	return n
}

// Rescan runs ScanCandidatesForJob for every active auto-match job. It
// recovers pairs whose trigger event was missed. It returns the number of
// matches created.
func (s *Scheduler) Rescan(ctx context.Context) int {
	jobs, err := s.jobs.ListActiveJobs(ctx, true)
	if err != nil {
		s.log.Error("rescan: list active jobs failed", zap.Error(err))
		return 0
	}
	if len(jobs) == 0 {
		s.log.Info("rescan: no active jobs")
		return 0
	}

	created := 0
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		created += len(s.scan.ScanCandidatesForJob(ctx, j))
	}
	s.log.Info("rescan complete", zap.Int("jobs", len(jobs)), zap.Int("created", created))
	return created
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
