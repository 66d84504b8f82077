package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Postgres is the pgx-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a store backed by pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates missing tables and indexes.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensureSchema: %w", err)
	}
	return nil
}

// ─── Matches ─────────────────────────────────────────────────────────────────

const matchColumns = `
	m.id, m.candidate_id, m.job_id, m.cv_analysis_id, m.match_score, m.match_details,
	m.match_reasons, m.concerns, m.status, m.is_auto_matched, m.is_mutual_interest,
	m.matching_algorithm_version, m.is_favorite_company, m.is_favorite_candidate,
	m.company_notified_at, m.candidate_notified_at, m.viewed_by_company_at, m.viewed_by_candidate_at,
	m.company_action, m.candidate_action, m.company_decision, m.candidate_decision,
	m.company_action_at, m.candidate_action_at,
	m.company_notes, m.candidate_notes, m.created_at, m.updated_at, m.expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*model.Match, error) {
	var (
		m               model.Match
		status          string
		companyAction   *string
		candidateAction *string
		companyDecision *string
		candDecision    *string
		details         []byte
	)
	err := row.Scan(
		&m.ID, &m.CandidateID, &m.JobID, &m.CVAnalysisID, &m.Score, &details,
		&m.Reasons, &m.Concerns, &status, &m.IsAutoMatched, &m.IsMutualInterest,
		&m.AlgorithmVersion, &m.IsFavoriteCompany, &m.IsFavoriteCandidate,
		&m.CompanyNotifiedAt, &m.CandidateNotifiedAt, &m.ViewedByCompanyAt, &m.ViewedByCandidateAt,
		&companyAction, &candidateAction, &companyDecision, &candDecision,
		&m.CompanyActionAt, &m.CandidateActionAt,
		&m.CompanyNotes, &m.CandidateNotes, &m.CreatedAt, &m.UpdatedAt, &m.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &m.Breakdown); err != nil {
			return nil, fmt.Errorf("decode match_details: %w", err)
		}
	}
	m.Status = model.Status(status)
	m.CompanyAction = toAction(companyAction)
	m.CandidateAction = toAction(candidateAction)
	m.CompanyDecision = toAction(companyDecision)
	m.CandidateDecision = toAction(candDecision)
	return &m, nil
}

func toAction(s *string) *model.Action {
	if s == nil {
		return nil
	}
	a := model.Action(*s)
	return &a
}

// FindMatch returns the match for the pair, or nil when none exists.
func (p *Postgres) FindMatch(ctx context.Context, candidateID, jobID int64) (*model.Match, error) {
	m, err := scanMatch(p.pool.QueryRow(ctx,
		`SELECT`+matchColumns+` FROM matches m WHERE m.candidate_id = $1 AND m.job_id = $2`,
		candidateID, jobID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("findMatch: %w", err)
	}
	return m, nil
}

// GetMatch returns a match by id.
func (p *Postgres) GetMatch(ctx context.Context, id int64) (*model.Match, error) {
	m, err := scanMatch(p.pool.QueryRow(ctx,
		`SELECT`+matchColumns+` FROM matches m WHERE m.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getMatch %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getMatch: %w", err)
	}
	return m, nil
}

// SaveMatch inserts a new match. A concurrent insert for the same pair
// fails on unique_candidate_job_match and is reported as
// apperr.ErrDuplicateMatch.
func (p *Postgres) SaveMatch(ctx context.Context, m *model.Match) (*model.Match, error) {
	details, err := json.Marshal(m.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("saveMatch encode details: %w", err)
	}
	saved, err := scanMatch(p.pool.QueryRow(ctx,
		`INSERT INTO matches AS m (
		   candidate_id, job_id, cv_analysis_id, match_score, match_details,
		   match_reasons, concerns, status, is_auto_matched, is_mutual_interest,
		   matching_algorithm_version, created_at, updated_at, expires_at
		 ) VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $12, $13)
		 RETURNING`+matchColumns,
		m.CandidateID, m.JobID, m.CVAnalysisID, m.Score, details,
		nonNil(m.Reasons), nonNil(m.Concerns), string(m.Status), m.IsAutoMatched, m.IsMutualInterest,
		m.AlgorithmVersion, m.CreatedAt, m.ExpiresAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("saveMatch (%d, %d): %w", m.CandidateID, m.JobID, apperr.ErrDuplicateMatch)
		}
		return nil, fmt.Errorf("saveMatch: %w", err)
	}
	return saved, nil
}

// ChangeMatch applies one side's change with per-field conditional writes,
// then stores the derived status. The row lock taken by the first statement
// serialises concurrent changes from both sides.
func (p *Postgres) ChangeMatch(ctx context.Context, id int64, c lifecycle.Change) (*model.Match, lifecycle.Transition, error) {
	var tr lifecycle.Transition

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, tr, fmt.Errorf("changeMatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from string
	err = tx.QueryRow(ctx, `SELECT status FROM matches WHERE id = $1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tr, fmt.Errorf("changeMatch %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, tr, fmt.Errorf("changeMatch lock: %w", err)
	}

	cols := columnsFor(c.Side)
	args := []any{id, c.At}
	sets := []string{
		// A repeated view leaves updated_at alone.
		fmt.Sprintf("updated_at = CASE WHEN %s IS NULL AND $3 THEN $2 WHEN $4 THEN $2 ELSE updated_at END", cols.viewed),
	}
	args = append(args, c.View, c.Action != "" || c.Favorite != nil)
	if c.View {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, $2)", cols.viewed, cols.viewed))
	}
	if c.Action != "" {
		args = append(args, string(c.Action))
		sets = append(sets, fmt.Sprintf("%s = $%d, %s = $2", cols.action, len(args), cols.actionAt))
		if c.Action.IsDecision() {
			sets = append(sets, fmt.Sprintf("%s = $%d", cols.decision, len(args)))
		}
		if c.Notes != nil {
			args = append(args, *c.Notes)
			sets = append(sets, fmt.Sprintf("%s = $%d", cols.notes, len(args)))
		}
	}
	if c.Favorite != nil {
		args = append(args, *c.Favorite)
		sets = append(sets, fmt.Sprintf("%s = $%d", cols.favorite, len(args)))
	}

	m, err := scanMatch(tx.QueryRow(ctx,
		`UPDATE matches AS m SET `+strings.Join(sets, ", ")+` WHERE m.id = $1 RETURNING`+matchColumns,
		args...,
	))
	if err != nil {
		return nil, tr, fmt.Errorf("changeMatch update: %w", err)
	}

	stored, storedMutual := m.Status, m.IsMutualInterest
	lifecycle.Derive(m)
	if m.Status != stored || m.IsMutualInterest != storedMutual {
		if _, err := tx.Exec(ctx,
			`UPDATE matches SET status = $1, is_mutual_interest = $2 WHERE id = $3`,
			string(m.Status), m.IsMutualInterest, id,
		); err != nil {
			return nil, tr, fmt.Errorf("changeMatch status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, tr, fmt.Errorf("changeMatch commit: %w", err)
	}
	return m, lifecycle.Transition{From: model.Status(from), To: m.Status}, nil
}

// MarkNotified stamps the side's notified timestamp once.
func (p *Postgres) MarkNotified(ctx context.Context, id int64, side model.Side, at time.Time) error {
	col := columnsFor(side).notified
	_, err := p.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE matches SET %s = COALESCE(%s, $2) WHERE id = $1`, col, col),
		id, at,
	)
	if err != nil {
		return fmt.Errorf("markNotified: %w", err)
	}
	return nil
}

// ExpireMatches moves every non-final match whose expiry has passed to
// expired and returns how many rows changed.
func (p *Postgres) ExpireMatches(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx,
		`UPDATE matches
		 SET status = 'expired', updated_at = $1
		 WHERE expires_at IS NOT NULL AND expires_at <= $1 AND status = ANY($2)`,
		now, expirable(),
	)
	if err != nil {
		return 0, fmt.Errorf("expireMatches: %w", err)
	}
	return tag.RowsAffected(), nil
}

func matchWhere(f model.MatchFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.CandidateID != 0 {
		add("m.candidate_id = $%d", f.CandidateID)
	}
	if f.JobID != 0 {
		add("m.job_id = $%d", f.JobID)
	}
	if f.CompanyUserID != 0 {
		add(`m.job_id IN (SELECT j.id FROM jobs j JOIN companies c ON c.id = j.company_id WHERE c.user_id = $%d)`, f.CompanyUserID)
	}
	if f.Status != "" {
		add("m.status = $%d", string(f.Status))
	}
	if f.MinScore > 0 {
		add("m.match_score >= $%d", f.MinScore)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListMatches returns matches ordered by score, then newest first.
func (p *Postgres) ListMatches(ctx context.Context, f model.MatchFilter) ([]model.Match, error) {
	where, args := matchWhere(f)
	args = append(args, listLimit(f.Limit))
	rows, err := p.pool.Query(ctx,
		`SELECT`+matchColumns+` FROM matches m`+where+
			fmt.Sprintf(` ORDER BY m.match_score DESC, m.created_at DESC LIMIT $%d`, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listMatches query: %w", err)
	}
	defer rows.Close()

	matches := make([]model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("listMatches scan: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// MatchStats counts matches for the filter. Limit is ignored.
func (p *Postgres) MatchStats(ctx context.Context, f model.MatchFilter) (model.MatchStats, error) {
	where, args := matchWhere(f)
	var st model.MatchStats
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE m.status = 'new'),
		        COUNT(*) FILTER (WHERE m.is_mutual_interest),
		        COALESCE(AVG(m.match_score), 0)::float8
		 FROM matches m`+where,
		args...,
	).Scan(&st.Total, &st.New, &st.MutualInterest, &st.AverageScore)
	if err != nil {
		return st, fmt.Errorf("matchStats: %w", err)
	}
	st.AverageScore = math.Round(st.AverageScore*10) / 10
	return st, nil
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

const jobColumns = `
	j.id, c.user_id, c.name, j.title, j.description, j.required_skills, j.nice_to_have_skills,
	j.min_experience_years, j.max_experience_years, j.education_level, j.is_remote, j.remote_type,
	j.city, j.country, j.salary_min, j.salary_max, j.match_threshold, j.auto_match, j.is_active, j.expires_at`

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		j          model.Job
		remoteMode string
	)
	err := row.Scan(
		&j.ID, &j.CompanyUserID, &j.CompanyName, &j.Title, &j.Description, &j.RequiredSkills, &j.NiceToHaveSkills,
		&j.MinExperienceYears, &j.MaxExperienceYears, &j.EducationLevel, &j.IsRemote, &remoteMode,
		&j.City, &j.Country, &j.SalaryMin, &j.SalaryMax, &j.MatchThreshold, &j.AutoMatch, &j.IsActive, &j.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	j.RemoteMode = model.RemoteMode(remoteMode)
	return &j, nil
}

// ListActiveJobs returns active, unexpired jobs. With autoMatchOnly only
// jobs that opted into auto-matching are returned.
func (p *Postgres) ListActiveJobs(ctx context.Context, autoMatchOnly bool) ([]model.Job, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT`+jobColumns+`
		 FROM jobs j JOIN companies c ON c.id = j.company_id
		 WHERE j.is_active
		   AND (j.expires_at IS NULL OR j.expires_at > NOW())
		   AND (NOT $1 OR j.auto_match)
		 ORDER BY j.id`,
		autoMatchOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("listActiveJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listActiveJobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// GetJob returns a job by id.
func (p *Postgres) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	j, err := scanJob(p.pool.QueryRow(ctx,
		`SELECT`+jobColumns+` FROM jobs j JOIN companies c ON c.id = j.company_id WHERE j.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getJob %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}
	return j, nil
}

// ─── Candidates and CV analyses ──────────────────────────────────────────────

const candidateColumns = `
	c.id, c.user_id, c.full_name, c.skills, c.experience_years, c.education_level, c.city, c.country,
	c.willing_to_relocate, c.desired_salary_min, c.desired_salary_max, c.is_available, c.is_public`

const snapshotColumns = `
	ca.id, ca.candidate_id, COALESCE(ca.extracted_data, '{}'::jsonb), COALESCE(ca.keywords, '[]'::jsonb), ca.created_at`

func scanCandidateSnapshot(row rowScanner) (*model.CandidateSnapshot, error) {
	var (
		cs        model.CandidateSnapshot
		c         = &cs.Candidate
		snapID    *int64
		snapCand  *int64
		snapAt    *time.Time
		extracted []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.FullName, &c.Skills, &c.ExperienceYears, &c.EducationLevel, &c.City, &c.Country,
		&c.WillingToRelocate, &c.DesiredSalaryMin, &c.DesiredSalaryMax, &c.IsAvailable, &c.IsPublic,
		&snapID, &snapCand, &extracted, &cs.Snapshot.Keywords, &snapAt,
	)
	if err != nil {
		return nil, err
	}
	if snapID != nil {
		cs.Snapshot.ID = *snapID
	}
	if snapCand != nil {
		cs.Snapshot.CandidateID = *snapCand
	}
	if snapAt != nil {
		cs.Snapshot.CreatedAt = *snapAt
	}
	if err := json.Unmarshal(extracted, &cs.Snapshot.Extracted); err != nil {
		return nil, fmt.Errorf("decode extracted_data: %w", err)
	}
	return &cs, nil
}

// ListLatestSnapshots returns every candidate paired with their most recent
// CV analysis.
func (p *Postgres) ListLatestSnapshots(ctx context.Context) ([]model.CandidateSnapshot, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT DISTINCT ON (ca.candidate_id)`+candidateColumns+`,`+snapshotColumns+`
		 FROM cv_analyses ca JOIN candidates c ON c.id = ca.candidate_id
		 WHERE ca.is_latest
		 ORDER BY ca.candidate_id, ca.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listLatestSnapshots query: %w", err)
	}
	defer rows.Close()

	out := make([]model.CandidateSnapshot, 0)
	for rows.Next() {
		cs, err := scanCandidateSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("listLatestSnapshots scan: %w", err)
		}
		out = append(out, *cs)
	}
	return out, rows.Err()
}

// GetSnapshot returns a CV analysis by id with its candidate.
func (p *Postgres) GetSnapshot(ctx context.Context, cvAnalysisID int64) (*model.CandidateSnapshot, error) {
	cs, err := scanCandidateSnapshot(p.pool.QueryRow(ctx,
		`SELECT`+candidateColumns+`,`+snapshotColumns+`
		 FROM cv_analyses ca JOIN candidates c ON c.id = ca.candidate_id
		 WHERE ca.id = $1`,
		cvAnalysisID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getSnapshot %d: %w", cvAnalysisID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getSnapshot: %w", err)
	}
	return cs, nil
}

// GetCandidateSnapshot returns a candidate with their latest CV analysis.
// The snapshot is zero when the candidate has none.
func (p *Postgres) GetCandidateSnapshot(ctx context.Context, candidateID int64) (*model.CandidateSnapshot, error) {
	cs, err := scanCandidateSnapshot(p.pool.QueryRow(ctx,
		`SELECT`+candidateColumns+`,`+snapshotColumns+`
		 FROM candidates c
		 LEFT JOIN LATERAL (
		   SELECT * FROM cv_analyses x
		   WHERE x.candidate_id = c.id
		   ORDER BY x.is_latest DESC, x.created_at DESC
		   LIMIT 1
		 ) ca ON TRUE
		 WHERE c.id = $1`,
		candidateID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("getCandidateSnapshot %d: %w", candidateID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getCandidateSnapshot: %w", err)
	}
	return cs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
