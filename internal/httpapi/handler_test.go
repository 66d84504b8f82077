package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"jobmate/match-service/internal/cache"
	"jobmate/match-service/internal/httpapi"
	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/notify"
	"jobmate/match-service/internal/scanner"
	"jobmate/match-service/internal/scoring"
	"jobmate/match-service/internal/store"
)

type env struct {
	st  *store.Memory
	srv http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	st.PutCandidate(model.Candidate{
		ID: 7, UserID: 70, FullName: "Alex Martin",
		Skills: []string{"Go", "PostgreSQL"}, ExperienceYears: 5,
	})
	st.PutSnapshot(model.CVSnapshot{ID: 700, CandidateID: 7, Keywords: []string{"backend", "go", "postgresql"}})
	st.PutJob(model.Job{
		ID: 42, CompanyUserID: 30, CompanyName: "Acme", Title: "Backend Engineer",
		RequiredSkills: []string{"Go", "PostgreSQL"}, MinExperienceYears: 2,
		IsRemote: true, AutoMatch: true, IsActive: true,
	})

	lc := lifecycle.NewService(st, nil, nil)
	sc := scanner.New(st, notify.NewDispatcher(&notify.Memory{}, nil), nil, scanner.Options{}, nil)
	scores := cache.NewScores(st, cache.NewMemoryCache(), time.Minute, nil)
	return &env{st: st, srv: httpapi.NewHandler(lc, sc, scores, nil).Routes()}
}

func (e *env) seed(t *testing.T, candidateID, jobID int64, score float64) *model.Match {
	t.Helper()
	m, err := e.st.SaveMatch(context.Background(), &model.Match{
		CandidateID: candidateID, JobID: jobID, Score: score, Status: model.StatusNew, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

// ── Health and middleware ──────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	rec := newEnv(t).do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc" {
		t.Errorf("X-Request-Id = %q, want abc", got)
	}
}

// ── Matches ────────────────────────────────────────────────────────────────

func TestListMatches_FiltersAndOrders(t *testing.T) {
	e := newEnv(t)
	e.seed(t, 7, 42, 70)
	e.seed(t, 8, 42, 90)
	e.seed(t, 9, 43, 99)

	rec := e.do(http.MethodGet, "/matches?jobId=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	got := decode[[]model.Match](t, rec)
	if len(got) != 2 || got[0].Score != 90 || got[1].Score != 70 {
		t.Errorf("got %+v", got)
	}
}

func TestListMatches_BadQuery(t *testing.T) {
	e := newEnv(t)
	for _, q := range []string{"jobId=x", "minScore=abc", "limit=-1", "status=pending", "minScore=101"} {
		if rec := e.do(http.MethodGet, "/matches?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	e.seed(t, 7, 42, 70)
	e.seed(t, 8, 42, 80)

	rec := e.do(http.MethodGet, "/matches/stats?jobId=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	st := decode[model.MatchStats](t, rec)
	if st.Total != 2 || st.New != 2 || st.AverageScore != 75 {
		t.Errorf("stats = %+v", st)
	}
}

func TestGetMatch_MarksViewedBySide(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t, 7, 42, 80)

	rec := e.do(http.MethodGet, "/matches/"+itoa(m.ID)+"?side=company", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	if got := decode[model.Match](t, rec); got.Status != model.StatusViewedByCompany {
		t.Errorf("status = %s, want viewed_by_company", got.Status)
	}

	plain := decode[model.Match](t, e.do(http.MethodGet, "/matches/"+itoa(m.ID), ""))
	if plain.Status != model.StatusViewedByCompany {
		t.Errorf("plain read status = %s", plain.Status)
	}
}

func TestGetMatch_Errors(t *testing.T) {
	e := newEnv(t)
	cases := []struct {
		path string
		want int
	}{
		{"/matches/abc", http.StatusBadRequest},
		{"/matches/999", http.StatusNotFound},
		{"/matches/999?side=admin", http.StatusBadRequest},
		{"/matches/1/2/3", http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := e.do(http.MethodGet, tc.path, ""); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestActions_ReachMutualInterest(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t, 7, 42, 80)
	base := "/matches/" + itoa(m.ID)

	steps := []struct {
		path, body string
		want       model.Status
	}{
		{base + "/view", `{"side":"candidate"}`, model.StatusViewedByCandidate},
		{base + "/view", `{"side":"company"}`, model.StatusBothViewed},
		{base + "/action", `{"side":"company","action":"interested","notes":"strong"}`, model.StatusBothViewed},
		{base + "/action", `{"side":"candidate","action":"interested"}`, model.StatusBothInterested},
	}
	for i, s := range steps {
		rec := e.do(http.MethodPost, s.path, s.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("step %d: status = %d body %s", i, rec.Code, rec.Body)
		}
		got := decode[model.Match](t, rec)
		if got.Status != s.want {
			t.Errorf("step %d: status = %s, want %s", i, got.Status, s.want)
		}
		if i == 3 && !got.IsMutualInterest {
			t.Error("expected mutual interest")
		}
	}
}

func TestActions_InformationalKeepStatus(t *testing.T) {
	for _, action := range []model.Action{model.ActionApplied, model.ActionContacted} {
		t.Run(string(action), func(t *testing.T) {
			e := newEnv(t)
			m := e.seed(t, 7, 42, 80)
			base := "/matches/" + itoa(m.ID) + "/action"
			for _, side := range []string{"company", "candidate"} {
				if rec := e.do(http.MethodPost, base, `{"side":"`+side+`","action":"interested"}`); rec.Code != http.StatusOK {
					t.Fatalf("interested %s: status = %d", side, rec.Code)
				}
			}

			rec := e.do(http.MethodPost, base, `{"side":"candidate","action":"`+string(action)+`"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body %s", rec.Code, rec.Body)
			}
			got := decode[model.Match](t, rec)
			if got.Status != model.StatusBothInterested || !got.IsMutualInterest {
				t.Errorf("status = %s, mutual = %v, want both_interested", got.Status, got.IsMutualInterest)
			}
			if got.ActionOf(model.SideCandidate) != action {
				t.Errorf("candidate action = %q, want %q", got.ActionOf(model.SideCandidate), action)
			}
		})
	}
}

func TestActions_Validation(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t, 7, 42, 80)
	base := "/matches/" + itoa(m.ID)

	cases := []struct {
		name, path, body string
		want             int
	}{
		{"bad json", base + "/action", `{`, http.StatusBadRequest},
		{"missing side", base + "/view", `{}`, http.StatusBadRequest},
		{"unknown action", base + "/action", `{"side":"company","action":"maybe"}`, http.StatusBadRequest},
		{"favorite without flag", base + "/favorite", `{"side":"company"}`, http.StatusBadRequest},
		{"unknown verb", base + "/archive", `{}`, http.StatusNotFound},
		{"unknown match", "/matches/999/view", `{"side":"company"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := e.do(http.MethodPost, tc.path, tc.body); rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestFavorite(t *testing.T) {
	e := newEnv(t)
	m := e.seed(t, 7, 42, 80)

	rec := e.do(http.MethodPost, "/matches/"+itoa(m.ID)+"/favorite", `{"side":"candidate","favorite":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[model.Match](t, rec)
	if !got.IsFavoriteCandidate || got.IsFavoriteCompany || got.Status != model.StatusNew {
		t.Errorf("got %+v", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := newEnv(t)
	cases := []struct{ method, path string }{
		{http.MethodPost, "/matches"},
		{http.MethodDelete, "/matches/1"},
		{http.MethodGet, "/matches/1/view"},
		{http.MethodGet, "/scan/job/42"},
		{http.MethodPost, "/score"},
	}
	for _, tc := range cases {
		if rec := e.do(tc.method, tc.path, ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}
}

// ── Scans and scores ───────────────────────────────────────────────────────

func TestScanJob(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/scan/job/42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	got := decode[httpapi.ScanResponse](t, rec)
	if got.Created != 1 || len(got.Matches) != 1 {
		t.Fatalf("got %+v", got)
	}

	again := decode[httpapi.ScanResponse](t, e.do(http.MethodPost, "/scan/cv/700", ""))
	if again.Created != 0 {
		t.Errorf("second scan created %d, want 0", again.Created)
	}
}

func TestScan_Errors(t *testing.T) {
	e := newEnv(t)
	cases := []struct {
		path string
		want int
	}{
		{"/scan/job/999", http.StatusNotFound},
		{"/scan/cv/999", http.StatusNotFound},
		{"/scan/cv/x", http.StatusBadRequest},
		{"/scan/resume/1", http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := e.do(http.MethodPost, tc.path, ""); rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, rec.Code, tc.want)
		}
	}
}

func TestScore(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/score?candidateId=7&jobId=42", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	got := decode[scoring.Result](t, rec)
	if got.Variant != "direct" || got.Overall <= 0 || got.Grade == "" {
		t.Errorf("got %+v", got)
	}

	if rec := e.do(http.MethodGet, "/score?candidateId=7", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing jobId: status = %d", rec.Code)
	}
	if rec := e.do(http.MethodGet, "/score?candidateId=7&jobId=1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown job: status = %d", rec.Code)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
