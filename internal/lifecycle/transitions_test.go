package lifecycle_test

import (
	"testing"
	"time"

	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/model"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMatch() *model.Match {
	return &model.Match{ID: 1, CandidateID: 7, JobID: 42, Status: model.StatusNew, CreatedAt: t0, UpdatedAt: t0}
}

// ── MarkViewed ─────────────────────────────────────────────────────────────

func TestMarkViewed_SingleSide(t *testing.T) {
	cases := []struct {
		side model.Side
		want model.Status
	}{
		{model.SideCompany, model.StatusViewedByCompany},
		{model.SideCandidate, model.StatusViewedByCandidate},
	}
	for _, c := range cases {
		m := newMatch()
		if !lifecycle.MarkViewed(m, c.side, t0) {
			t.Errorf("MarkViewed(%s) on fresh match should report a change", c.side)
		}
		if m.Status != c.want {
			t.Errorf("MarkViewed(%s): status = %s, want %s", c.side, m.Status, c.want)
		}
		if m.ViewedAt(c.side) == nil || !m.ViewedAt(c.side).Equal(t0) {
			t.Errorf("MarkViewed(%s): viewed timestamp = %v, want %v", c.side, m.ViewedAt(c.side), t0)
		}
	}
}

func TestMarkViewed_BothSides(t *testing.T) {
	m := newMatch()
	lifecycle.MarkViewed(m, model.SideCompany, t0)
	lifecycle.MarkViewed(m, model.SideCandidate, t0.Add(time.Minute))
	if m.Status != model.StatusBothViewed {
		t.Errorf("status = %s, want %s", m.Status, model.StatusBothViewed)
	}
}

func TestMarkViewed_Idempotent(t *testing.T) {
	m := newMatch()
	lifecycle.MarkViewed(m, model.SideCompany, t0)
	later := t0.Add(time.Hour)
	if lifecycle.MarkViewed(m, model.SideCompany, later) {
		t.Error("second MarkViewed should be a no-op")
	}
	if !m.ViewedByCompanyAt.Equal(t0) {
		t.Errorf("viewed timestamp moved to %v, want %v", m.ViewedByCompanyAt, t0)
	}
	if !m.UpdatedAt.Equal(t0) {
		t.Errorf("updatedAt moved to %v on a no-op view", m.UpdatedAt)
	}
}

// ── SetAction ──────────────────────────────────────────────────────────────

func TestSetAction_StatusMatrix(t *testing.T) {
	none := model.Action("")
	cases := []struct {
		company, candidate model.Action
		want               model.Status
		mutual             bool
	}{
		{model.ActionInterested, model.ActionInterested, model.StatusBothInterested, true},
		{model.ActionInterested, none, model.StatusBothViewed, false},
		{model.ActionNotInterested, model.ActionInterested, model.StatusRejectedByCompany, false},
		{model.ActionInterested, model.ActionNotInterested, model.StatusRejectedByCandidate, false},
		{model.ActionNotInterested, model.ActionNotInterested, model.StatusRejectedByCompany, false},
		{model.ActionApplied, model.ActionContacted, model.StatusBothViewed, false},
		{model.ActionContacted, model.ActionInterested, model.StatusBothViewed, false},
	}
	for _, c := range cases {
		m := newMatch()
		lifecycle.MarkViewed(m, model.SideCompany, t0)
		lifecycle.MarkViewed(m, model.SideCandidate, t0)
		if c.company != none {
			lifecycle.SetAction(m, model.SideCompany, c.company, nil, t0)
		}
		if c.candidate != none {
			lifecycle.SetAction(m, model.SideCandidate, c.candidate, nil, t0)
		}
		if m.Status != c.want {
			t.Errorf("company=%q candidate=%q: status = %s, want %s", c.company, c.candidate, m.Status, c.want)
		}
		if m.IsMutualInterest != c.mutual {
			t.Errorf("company=%q candidate=%q: mutual = %v, want %v", c.company, c.candidate, m.IsMutualInterest, c.mutual)
		}
	}
}

// isMutualInterest must equal "both latest decisions are interested" for
// every combination, whatever order the actions arrive in. A side whose only
// action is informational has not decided.
func TestSetAction_MutualInterestIff(t *testing.T) {
	actions := []model.Action{
		model.ActionInterested, model.ActionNotInterested, model.ActionApplied, model.ActionContacted,
	}
	for _, first := range actions {
		for _, second := range actions {
			for _, companyFirst := range []bool{true, false} {
				m := newMatch()
				if companyFirst {
					lifecycle.SetAction(m, model.SideCompany, first, nil, t0)
					lifecycle.SetAction(m, model.SideCandidate, second, nil, t0)
				} else {
					lifecycle.SetAction(m, model.SideCandidate, second, nil, t0)
					lifecycle.SetAction(m, model.SideCompany, first, nil, t0)
				}
				want := first == model.ActionInterested && second == model.ActionInterested
				if m.IsMutualInterest != want {
					t.Errorf("company=%s candidate=%s: mutual = %v, want %v", first, second, m.IsMutualInterest, want)
				}
				if want != (m.Status == model.StatusBothInterested) {
					t.Errorf("company=%s candidate=%s: status %s disagrees with mutual=%v", first, second, m.Status, want)
				}
			}
		}
	}
}

// Informational actions after a decision keep the status and the decision.
func TestSetAction_InformationalKeepsStatus(t *testing.T) {
	cases := []struct {
		name      string
		decisions [][2]model.Action // {company, candidate}; "" skips the side
		side      model.Side
		info      model.Action
		want      model.Status
		mutual    bool
	}{
		{"applied after mutual interest", [][2]model.Action{{model.ActionInterested, model.ActionInterested}},
			model.SideCandidate, model.ActionApplied, model.StatusBothInterested, true},
		{"contacted after mutual interest", [][2]model.Action{{model.ActionInterested, model.ActionInterested}},
			model.SideCompany, model.ActionContacted, model.StatusBothInterested, true},
		{"contacted after company rejection", [][2]model.Action{{model.ActionNotInterested, ""}},
			model.SideCompany, model.ActionContacted, model.StatusRejectedByCompany, false},
		{"applied after candidate rejection", [][2]model.Action{{"", model.ActionNotInterested}},
			model.SideCandidate, model.ActionApplied, model.StatusRejectedByCandidate, false},
		{"contacted on an undecided match", nil,
			model.SideCompany, model.ActionContacted, model.StatusNew, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := newMatch()
			for _, d := range c.decisions {
				if d[0] != "" {
					lifecycle.SetAction(m, model.SideCompany, d[0], nil, t0)
				}
				if d[1] != "" {
					lifecycle.SetAction(m, model.SideCandidate, d[1], nil, t0)
				}
			}
			before := m.DecisionOf(c.side)

			lifecycle.SetAction(m, c.side, c.info, nil, t0.Add(time.Hour))
			if m.Status != c.want {
				t.Errorf("status = %s, want %s", m.Status, c.want)
			}
			if m.IsMutualInterest != c.mutual {
				t.Errorf("mutual = %v, want %v", m.IsMutualInterest, c.mutual)
			}
			if m.ActionOf(c.side) != c.info {
				t.Errorf("latest action = %q, want %q", m.ActionOf(c.side), c.info)
			}
			if m.DecisionOf(c.side) != before {
				t.Errorf("decision = %q, want unchanged %q", m.DecisionOf(c.side), before)
			}
		})
	}
}

func TestSetAction_RecordsTimestampAndNotes(t *testing.T) {
	m := newMatch()
	note := "strong Go background"
	lifecycle.SetAction(m, model.SideCompany, model.ActionContacted, &note, t0)
	if m.CompanyActionAt == nil || !m.CompanyActionAt.Equal(t0) {
		t.Errorf("company action at = %v, want %v", m.CompanyActionAt, t0)
	}
	if m.CompanyNotes == nil || *m.CompanyNotes != note {
		t.Errorf("company notes = %v, want %q", m.CompanyNotes, note)
	}
	if m.Status != model.StatusNew {
		t.Errorf("informational action changed status to %s", m.Status)
	}

	lifecycle.SetAction(m, model.SideCompany, model.ActionInterested, nil, t0.Add(time.Hour))
	if m.CompanyNotes == nil || *m.CompanyNotes != note {
		t.Error("nil notes should keep the previous notes")
	}
	if m.CandidateNotes != nil {
		t.Error("company action must not touch candidate notes")
	}
}

// ── Apply ──────────────────────────────────────────────────────────────────

func TestApply_ReportsTransition(t *testing.T) {
	m := newMatch()
	tr := lifecycle.Apply(m, lifecycle.Change{Side: model.SideCandidate, View: true, At: t0})
	if tr.From != model.StatusNew || tr.To != model.StatusViewedByCandidate || !tr.Changed() {
		t.Errorf("transition = %+v, want new → viewed_by_candidate", tr)
	}
	tr = lifecycle.Apply(m, lifecycle.Change{Side: model.SideCandidate, View: true, At: t0})
	if tr.Changed() {
		t.Errorf("repeated view should not move status, got %+v", tr)
	}
}

func TestApply_ViewAndActionTogether(t *testing.T) {
	m := newMatch()
	lifecycle.SetAction(m, model.SideCandidate, model.ActionInterested, nil, t0)
	tr := lifecycle.Apply(m, lifecycle.Change{
		Side:   model.SideCompany,
		View:   true,
		Action: model.ActionInterested,
		At:     t0,
	})
	if tr.To != model.StatusBothInterested {
		t.Errorf("status = %s, want %s", tr.To, model.StatusBothInterested)
	}
	if m.ViewedByCompanyAt == nil {
		t.Error("view part of the change was not applied")
	}
}
