package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/model"
)

type pairKey struct{ candidateID, jobID int64 }

// Memory is an in-process store guarded by a mutex. It enforces the same
// pair uniqueness as the unique_candidate_job_match constraint.
type Memory struct {
	mu         sync.Mutex
	nextID     int64
	matches    map[int64]*model.Match
	byPair     map[pairKey]int64
	jobs       map[int64]model.Job
	candidates map[int64]model.Candidate
	snapshots  map[int64]model.CVSnapshot
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		matches:    make(map[int64]*model.Match),
		byPair:     make(map[pairKey]int64),
		jobs:       make(map[int64]model.Job),
		candidates: make(map[int64]model.Candidate),
		snapshots:  make(map[int64]model.CVSnapshot),
	}
}

// PutJob inserts or replaces a job.
func (s *Memory) PutJob(j model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// PutCandidate inserts or replaces a candidate.
func (s *Memory) PutCandidate(c model.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[c.ID] = c
}

// PutSnapshot inserts or replaces a CV analysis.
func (s *Memory) PutSnapshot(cv model.CVSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[cv.ID] = cv
}

// MatchCount returns the number of stored matches.
func (s *Memory) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

func cloneMatch(m *model.Match) *model.Match {
	c := *m
	c.Reasons = append([]string(nil), m.Reasons...)
	c.Concerns = append([]string(nil), m.Concerns...)
	return &c
}

func (s *Memory) FindMatch(_ context.Context, candidateID, jobID int64) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPair[pairKey{candidateID, jobID}]
	if !ok {
		return nil, nil
	}
	return cloneMatch(s.matches[id]), nil
}

func (s *Memory) GetMatch(_ context.Context, id int64) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("getMatch %d: %w", id, apperr.ErrNotFound)
	}
	return cloneMatch(m), nil
}

func (s *Memory) SaveMatch(_ context.Context, m *model.Match) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{m.CandidateID, m.JobID}
	if _, dup := s.byPair[key]; dup {
		return nil, fmt.Errorf("saveMatch (%d, %d): %w", m.CandidateID, m.JobID, apperr.ErrDuplicateMatch)
	}
	s.nextID++
	saved := cloneMatch(m)
	saved.ID = s.nextID
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = saved.CreatedAt
	}
	s.matches[saved.ID] = saved
	s.byPair[key] = saved.ID
	return cloneMatch(saved), nil
}

func (s *Memory) ChangeMatch(_ context.Context, id int64, c lifecycle.Change) (*model.Match, lifecycle.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, lifecycle.Transition{}, fmt.Errorf("changeMatch %d: %w", id, apperr.ErrNotFound)
	}
	tr := lifecycle.Apply(m, c)
	return cloneMatch(m), tr, nil
}

func (s *Memory) MarkNotified(_ context.Context, id int64, side model.Side, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("markNotified %d: %w", id, apperr.ErrNotFound)
	}
	ts := at
	if side == model.SideCompany {
		if m.CompanyNotifiedAt == nil {
			m.CompanyNotifiedAt = &ts
		}
	} else if m.CandidateNotifiedAt == nil {
		m.CandidateNotifiedAt = &ts
	}
	return nil
}

func (s *Memory) ExpireMatches(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.matches {
		if m.ExpiresAt != nil && !m.ExpiresAt.After(now) && lifecycle.CanExpire(m.Status) {
			m.Status = model.StatusExpired
			m.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Memory) filter(f model.MatchFilter) []model.Match {
	out := make([]model.Match, 0)
	for _, m := range s.matches {
		if f.CandidateID != 0 && m.CandidateID != f.CandidateID {
			continue
		}
		if f.JobID != 0 && m.JobID != f.JobID {
			continue
		}
		if f.CompanyUserID != 0 && s.jobs[m.JobID].CompanyUserID != f.CompanyUserID {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.MinScore > 0 && m.Score < f.MinScore {
			continue
		}
		out = append(out, *cloneMatch(m))
	}
	return out
}

func (s *Memory) ListMatches(_ context.Context, f model.MatchFilter) ([]model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filter(f)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if n := listLimit(f.Limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *Memory) MatchStats(_ context.Context, f model.MatchFilter) (model.MatchStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		st  model.MatchStats
		sum float64
	)
	for _, m := range s.filter(f) {
		st.Total++
		sum += m.Score
		if m.Status == model.StatusNew {
			st.New++
		}
		if m.IsMutualInterest {
			st.MutualInterest++
		}
	}
	if st.Total > 0 {
		st.AverageScore = math.Round(sum/float64(st.Total)*10) / 10
	}
	return st, nil
}

func (s *Memory) ListActiveJobs(_ context.Context, autoMatchOnly bool) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	out := make([]model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !j.IsActive || j.IsExpired(now) || (autoMatchOnly && !j.AutoMatch) {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *Memory) GetJob(_ context.Context, id int64) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("getJob %d: %w", id, apperr.ErrNotFound)
	}
	return &j, nil
}

// latest returns the newest snapshot per candidate.
func (s *Memory) latest() map[int64]model.CVSnapshot {
	out := make(map[int64]model.CVSnapshot)
	for _, cv := range s.snapshots {
		cur, ok := out[cv.CandidateID]
		if !ok || cv.CreatedAt.After(cur.CreatedAt) || (cv.CreatedAt.Equal(cur.CreatedAt) && cv.ID > cur.ID) {
			out[cv.CandidateID] = cv
		}
	}
	return out
}

func (s *Memory) ListLatestSnapshots(_ context.Context) ([]model.CandidateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CandidateSnapshot, 0)
	for candID, cv := range s.latest() {
		c, ok := s.candidates[candID]
		if !ok {
			continue
		}
		out = append(out, model.CandidateSnapshot{Candidate: c, Snapshot: cv})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Candidate.ID < out[b].Candidate.ID })
	return out, nil
}

func (s *Memory) GetSnapshot(_ context.Context, cvAnalysisID int64) (*model.CandidateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.snapshots[cvAnalysisID]
	if !ok {
		return nil, fmt.Errorf("getSnapshot %d: %w", cvAnalysisID, apperr.ErrNotFound)
	}
	c, ok := s.candidates[cv.CandidateID]
	if !ok {
		return nil, fmt.Errorf("getSnapshot %d candidate: %w", cvAnalysisID, apperr.ErrNotFound)
	}
	return &model.CandidateSnapshot{Candidate: c, Snapshot: cv}, nil
}

func (s *Memory) GetCandidateSnapshot(_ context.Context, candidateID int64) (*model.CandidateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, fmt.Errorf("getCandidateSnapshot %d: %w", candidateID, apperr.ErrNotFound)
	}
	return &model.CandidateSnapshot{Candidate: c, Snapshot: s.latest()[candidateID]}, nil
}
