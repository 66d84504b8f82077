package store_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/store"
)

// Runs against a disposable database only when MATCH_TEST_DATABASE_URL is set.
func newPostgres(t *testing.T) (*store.Postgres, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("MATCH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MATCH_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE notifications, matches, cv_analyses, jobs, companies, candidates RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pg, pool
}

func seedPostgres(t *testing.T, pool *pgxpool.Pool) (candidateID, jobID int64) {
	t.Helper()
	ctx := context.Background()
	var companyID int64
	if err := pool.QueryRow(ctx, `INSERT INTO companies (user_id, name) VALUES (500, 'Acme') RETURNING id`).Scan(&companyID); err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx,
		`INSERT INTO jobs (company_id, title, required_skills) VALUES ($1, 'Backend Engineer', '["Go"]') RETURNING id`,
		companyID,
	).Scan(&jobID); err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx,
		`INSERT INTO candidates (user_id, full_name, skills) VALUES (900, 'Awa Diallo', '["Go","SQL"]') RETURNING id`,
	).Scan(&candidateID); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO cv_analyses (candidate_id, extracted_data, keywords) VALUES ($1, '{"technicalSkills":["Docker"]}', '["go"]')`,
		candidateID,
	); err != nil {
		t.Fatal(err)
	}
	return candidateID, jobID
}

func TestPostgres_SaveAndDuplicate(t *testing.T) {
	pg, pool := newPostgres(t)
	ctx := context.Background()
	candidateID, jobID := seedPostgres(t, pool)

	m := &model.Match{
		CandidateID:      candidateID,
		JobID:            jobID,
		Score:            73.3,
		Status:           model.StatusNew,
		Breakdown:        model.ScoreBreakdown{Skills: model.SkillsDetail{Score: 80, MatchedSkills: []string{"go"}}},
		Reasons:          []string{"Excellent skills match (1/1)"},
		IsAutoMatched:    true,
		AlgorithmVersion: "1.0",
		CreatedAt:        time.Now().UTC(),
	}
	saved, err := pg.SaveMatch(ctx, m)
	if err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	if saved.Breakdown.Skills.Score != 80 || len(saved.Reasons) != 1 {
		t.Errorf("round-tripped match lost data: %+v", saved)
	}
	if saved.Score != m.Score {
		t.Errorf("score = %v, want exactly %v", saved.Score, m.Score)
	}
	listed, err := pg.ListMatches(ctx, model.MatchFilter{MinScore: m.Score})
	if err != nil || len(listed) != 1 {
		t.Errorf("ListMatches(minScore=%v) = (%d matches, %v), want 1", m.Score, len(listed), err)
	}
	if _, err := pg.SaveMatch(ctx, m); !errors.Is(err, apperr.ErrDuplicateMatch) {
		t.Errorf("duplicate SaveMatch error = %v, want ErrDuplicateMatch", err)
	}

	snaps, err := pg.ListLatestSnapshots(ctx)
	if err != nil || len(snaps) != 1 || snaps[0].Snapshot.Extracted.TechnicalSkills[0] != "Docker" {
		t.Errorf("ListLatestSnapshots = (%+v, %v)", snaps, err)
	}
}

// Both sides viewing at the same instant must end in both_viewed.
func TestPostgres_ConcurrentViews(t *testing.T) {
	pg, pool := newPostgres(t)
	ctx := context.Background()
	candidateID, jobID := seedPostgres(t, pool)
	saved, err := pg.SaveMatch(ctx, &model.Match{
		CandidateID: candidateID, JobID: jobID, Score: 70, Status: model.StatusNew, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for _, side := range []model.Side{model.SideCompany, model.SideCandidate} {
		wg.Add(1)
		go func(side model.Side) {
			defer wg.Done()
			if _, _, err := pg.ChangeMatch(ctx, saved.ID, lifecycle.Change{Side: side, View: true, At: time.Now().UTC()}); err != nil {
				t.Errorf("ChangeMatch(%s): %v", side, err)
			}
		}(side)
	}
	wg.Wait()

	got, err := pg.GetMatch(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusBothViewed {
		t.Errorf("status = %s, want %s", got.Status, model.StatusBothViewed)
	}
}

// An informational action after mutual interest is stored but keeps the
// status and the stored decision.
func TestPostgres_InformationalActionKeepsDecision(t *testing.T) {
	pg, pool := newPostgres(t)
	ctx := context.Background()
	candidateID, jobID := seedPostgres(t, pool)
	saved, err := pg.SaveMatch(ctx, &model.Match{
		CandidateID: candidateID, JobID: jobID, Score: 70, Status: model.StatusNew, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	steps := []lifecycle.Change{
		{Side: model.SideCompany, Action: model.ActionInterested},
		{Side: model.SideCandidate, Action: model.ActionInterested},
		{Side: model.SideCandidate, Action: model.ActionApplied},
	}
	var got *model.Match
	for _, c := range steps {
		c.At = time.Now().UTC()
		if got, _, err = pg.ChangeMatch(ctx, saved.ID, c); err != nil {
			t.Fatalf("ChangeMatch(%s %s): %v", c.Side, c.Action, err)
		}
	}
	if got.Status != model.StatusBothInterested || !got.IsMutualInterest {
		t.Errorf("status = %s, mutual = %v, want both_interested", got.Status, got.IsMutualInterest)
	}
	if got.ActionOf(model.SideCandidate) != model.ActionApplied || got.DecisionOf(model.SideCandidate) != model.ActionInterested {
		t.Errorf("candidate action/decision = %q/%q", got.ActionOf(model.SideCandidate), got.DecisionOf(model.SideCandidate))
	}
}
