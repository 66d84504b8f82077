package model_test

import (
	"testing"
	"time"

	"jobmate/match-service/internal/model"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{
		"new", "viewed_by_company", "viewed_by_candidate", "both_viewed",
		"both_interested", "rejected_by_company", "rejected_by_candidate", "expired",
	}
	for _, s := range valid {
		got, err := model.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

// Status values are case-sensitive and must not be padded.
func TestParseStatus_Rejects(t *testing.T) {
	for _, s := range []string{"", "NEW", "Both_Viewed", " new", "new ", "interested"} {
		if _, err := model.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := map[model.Status]bool{
		model.StatusRejectedByCompany:   true,
		model.StatusRejectedByCandidate: true,
		model.StatusExpired:             true,
	}
	for _, s := range []model.Status{
		model.StatusNew, model.StatusViewedByCompany, model.StatusViewedByCandidate, model.StatusBothViewed,
		model.StatusBothInterested, model.StatusRejectedByCompany, model.StatusRejectedByCandidate, model.StatusExpired,
	} {
		if s.IsTerminal() != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), terminal[s])
		}
	}
}

// ── ParseSide / ParseAction ────────────────────────────────────────────────

func TestParseSide(t *testing.T) {
	for _, s := range []string{"candidate", "company"} {
		if _, err := model.ParseSide(s); err != nil {
			t.Errorf("ParseSide(%q) returned unexpected error: %v", s, err)
		}
	}
	for _, s := range []string{"", "admin", "Company"} {
		if _, err := model.ParseSide(s); err == nil {
			t.Errorf("ParseSide(%q) expected error, got nil", s)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"interested", "not_interested", "applied", "contacted"} {
		if _, err := model.ParseAction(s); err != nil {
			t.Errorf("ParseAction(%q) returned unexpected error: %v", s, err)
		}
	}
	for _, s := range []string{"", "maybe", "INTERESTED"} {
		if _, err := model.ParseAction(s); err == nil {
			t.Errorf("ParseAction(%q) expected error, got nil", s)
		}
	}
}

// ── Match accessors ────────────────────────────────────────────────────────

func TestMatch_ActionOf(t *testing.T) {
	m := &model.Match{}
	if got := m.ActionOf(model.SideCompany); got != "" {
		t.Errorf("ActionOf(company) on empty match = %q, want empty", got)
	}
	a := model.ActionApplied
	m.CandidateAction = &a
	if got := m.ActionOf(model.SideCandidate); got != model.ActionApplied {
		t.Errorf("ActionOf(candidate) = %q, want %q", got, model.ActionApplied)
	}
	if got := m.ActionOf(model.SideCompany); got != "" {
		t.Errorf("ActionOf(company) = %q, want empty", got)
	}
}

func TestMatch_DecisionOf(t *testing.T) {
	m := &model.Match{}
	applied, interested := model.ActionApplied, model.ActionInterested
	m.CandidateAction, m.CandidateDecision = &applied, &interested
	if got := m.DecisionOf(model.SideCandidate); got != model.ActionInterested {
		t.Errorf("DecisionOf(candidate) = %q, want interested", got)
	}
	if got := m.DecisionOf(model.SideCompany); got != "" {
		t.Errorf("DecisionOf(company) = %q, want empty", got)
	}
}

func TestAction_IsDecision(t *testing.T) {
	cases := map[model.Action]bool{
		model.ActionInterested:    true,
		model.ActionNotInterested: true,
		model.ActionApplied:       false,
		model.ActionContacted:     false,
	}
	for a, want := range cases {
		if got := a.IsDecision(); got != want {
			t.Errorf("%s.IsDecision() = %v, want %v", a, got, want)
		}
	}
}

// ── Job helpers ────────────────────────────────────────────────────────────

func TestJob_FullyRemote(t *testing.T) {
	cases := []struct {
		remote bool
		mode   model.RemoteMode
		want   bool
	}{
		{false, "", false},
		{false, model.RemoteFull, false},
		{true, "", true},
		{true, model.RemoteFull, true},
		{true, "FULL", true},
		{true, model.RemoteHybrid, false},
		{true, model.RemoteNone, false},
	}
	for _, c := range cases {
		j := &model.Job{IsRemote: c.remote, RemoteMode: c.mode}
		if got := j.FullyRemote(); got != c.want {
			t.Errorf("FullyRemote(remote=%v, mode=%q) = %v, want %v", c.remote, c.mode, got, c.want)
		}
	}
}

func TestJob_Threshold(t *testing.T) {
	j := &model.Job{}
	if got := j.Threshold(60); got != 60 {
		t.Errorf("Threshold without job value = %v, want 60", got)
	}
	v := 75.0
	j.MatchThreshold = &v
	if got := j.Threshold(60); got != 75 {
		t.Errorf("Threshold with job value = %v, want 75", got)
	}
}

func TestJob_IsExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	if (&model.Job{}).IsExpired(now) {
		t.Error("job without expiry should not be expired")
	}
	if !(&model.Job{ExpiresAt: &past}).IsExpired(now) {
		t.Error("job past expiry should be expired")
	}
	if (&model.Job{ExpiresAt: &future}).IsExpired(now) {
		t.Error("job before expiry should not be expired")
	}
}
