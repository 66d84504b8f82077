package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/cache"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/scoring"
	"jobmate/match-service/internal/store"
)

// ── MemoryCache ────────────────────────────────────────────────────────────

func TestMemoryCache_RoundTripAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewMemoryCache()

	if err := c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	hit, err := c.GetJSON(ctx, "k", &got)
	if err != nil || !hit || got["a"] != 1 {
		t.Fatalf("GetJSON = (%v, %v, %v)", hit, err, got)
	}

	_ = c.Del(ctx, "k")
	if hit, _ := c.GetJSON(ctx, "k", &got); hit {
		t.Error("hit after Del")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewMemoryCache()
	_ = c.SetJSON(ctx, "k", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	var v int
	if hit, _ := c.GetJSON(ctx, "k", &v); hit {
		t.Error("expired entry returned")
	}
}

func TestMemoryCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewMemoryCache()
	_ = c.SetJSON(ctx, "k", "text", 0)

	var v int
	hit, err := c.GetJSON(ctx, "k", &v)
	if hit || err != nil {
		t.Errorf("GetJSON = (%v, %v), want miss", hit, err)
	}
}

// ── Scores ─────────────────────────────────────────────────────────────────

type countingSource struct {
	*store.Memory
	jobLoads int
}

func (c *countingSource) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	c.jobLoads++
	return c.Memory.GetJob(ctx, id)
}

func newSource() *countingSource {
	st := store.NewMemory()
	st.PutCandidate(model.Candidate{ID: 7, UserID: 70, Skills: []string{"Go"}, ExperienceYears: 4})
	st.PutJob(model.Job{ID: 42, Title: "Go developer", RequiredSkills: []string{"Go"}, IsRemote: true})
	return &countingSource{Memory: st}
}

func TestScores_DirectUsesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newSource()
	s := cache.NewScores(src, cache.NewMemoryCache(), time.Minute, nil)

	first, err := s.Direct(ctx, 7, 42)
	if err != nil {
		t.Fatalf("Direct: %v", err)
	}
	if first.Variant != scoring.VariantDirect.String() {
		t.Errorf("Variant = %q, want direct", first.Variant)
	}
	if first.Breakdown.Keywords != nil {
		t.Error("direct score should not carry keywords")
	}
	second, err := s.Direct(ctx, 7, 42)
	if err != nil {
		t.Fatal(err)
	}
	if second.Overall != first.Overall || src.jobLoads != 1 {
		t.Errorf("second call: overall %v vs %v, job loads %d", second.Overall, first.Overall, src.jobLoads)
	}

	if err := s.Invalidate(ctx, 7, 42); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Direct(ctx, 7, 42); err != nil || src.jobLoads != 2 {
		t.Errorf("after Invalidate: err %v, job loads %d, want 2", err, src.jobLoads)
	}
}

func TestScores_WithoutCache(t *testing.T) {
	t.Parallel()
	src := newSource()
	s := cache.NewScores(src, nil, 0, nil)
	for i := 0; i < 2; i++ {
		if _, err := s.Direct(context.Background(), 7, 42); err != nil {
			t.Fatal(err)
		}
	}
	if src.jobLoads != 2 {
		t.Errorf("job loads = %d, want 2", src.jobLoads)
	}
}

func TestScores_Errors(t *testing.T) {
	t.Parallel()
	s := cache.NewScores(newSource(), nil, 0, nil)
	cases := []struct {
		name      string
		cand, job int64
		want      apperr.Code
	}{
		{"missing ids", 0, 42, apperr.CodeInvalidArgument},
		{"unknown candidate", 8, 42, apperr.CodeNotFound},
		{"unknown job", 7, 43, apperr.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Direct(context.Background(), tc.cand, tc.job)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Code != tc.want {
				t.Errorf("err = %v, want code %s", err, tc.want)
			}
		})
	}
}
