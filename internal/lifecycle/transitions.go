// Package lifecycle defines the match state machine.
//
// Status is derived from the per-side fields after every mutation:
//
//	new ──► viewed_by_company / viewed_by_candidate ──► both_viewed
//	 │                                                       │
//	 └──────────────► both_interested ◄──────────────────────┘
//	 └──────────────► rejected_by_company / rejected_by_candidate
//
// expired is set by the expiry sweep. Views never leave it; actions still
// resolve to both_interested or rejected_*.
//
// Only decisions (interested, not_interested) drive the status. applied and
// contacted are recorded as the side's latest action but leave the status
// and the decision untouched.
//
// isMutualInterest is recomputed on every derivation and is true exactly
// when both latest decisions are "interested". A rejection by either side
// wins because a not_interested decision excludes mutual interest.
package lifecycle

import (
	"time"

	"jobmate/match-service/internal/model"
)

// Change is one side's mutation of a match. Zero-valued fields are left
// untouched.
type Change struct {
	Side     model.Side
	View     bool
	Action   model.Action
	Notes    *string
	Favorite *bool
	At       time.Time
}

// Transition records a status move produced by a change.
type Transition struct {
	From model.Status
	To   model.Status
}

// Changed reports whether the status moved.
func (t Transition) Changed() bool { return t.From != t.To }

// MarkViewed sets the side's viewed timestamp if it is unset and re-derives
// the status. A second call is a no-op and returns false.
func MarkViewed(m *model.Match, side model.Side, at time.Time) bool {
	if m.ViewedAt(side) != nil {
		return false
	}
	ts := at
	if side == model.SideCompany {
		m.ViewedByCompanyAt = &ts
	} else {
		m.ViewedByCandidateAt = &ts
	}
	m.UpdatedAt = at
	Derive(m)
	return true
}

// SetAction records the side's latest action, its timestamp and optional
// notes, then re-derives the status. A decision also replaces the side's
// decision; an informational action does not. Nil notes keep the previous
// notes.
func SetAction(m *model.Match, side model.Side, action model.Action, notes *string, at time.Time) {
	a, ts := action, at
	if side == model.SideCompany {
		m.CompanyAction, m.CompanyActionAt = &a, &ts
		if action.IsDecision() {
			m.CompanyDecision = &a
		}
		if notes != nil {
			m.CompanyNotes = notes
		}
	} else {
		m.CandidateAction, m.CandidateActionAt = &a, &ts
		if action.IsDecision() {
			m.CandidateDecision = &a
		}
		if notes != nil {
			m.CandidateNotes = notes
		}
	}
	m.UpdatedAt = at
	Derive(m)
}

// SetFavorite toggles the side's favorite flag. Status is unaffected.
func SetFavorite(m *model.Match, side model.Side, favorite bool, at time.Time) {
	if side == model.SideCompany {
		m.IsFavoriteCompany = favorite
	} else {
		m.IsFavoriteCandidate = favorite
	}
	m.UpdatedAt = at
}

// Apply runs every mutation carried by c in a fixed order (view, action,
// favorite) and returns the resulting status move.
func Apply(m *model.Match, c Change) Transition {
	from := m.Status
	if c.View {
		MarkViewed(m, c.Side, c.At)
	}
	if c.Action != "" {
		SetAction(m, c.Side, c.Action, c.Notes, c.At)
	}
	if c.Favorite != nil {
		SetFavorite(m, c.Side, *c.Favorite, c.At)
	}
	Derive(m)
	return Transition{From: from, To: m.Status}
}

// Derive recomputes IsMutualInterest and Status from the per-side fields.
func Derive(m *model.Match) {
	m.IsMutualInterest = m.DecisionOf(model.SideCompany) == model.ActionInterested &&
		m.DecisionOf(model.SideCandidate) == model.ActionInterested
	m.Status = DeriveStatus(m)
}

// DeriveStatus returns the status implied by the match fields without
// mutating it.
func DeriveStatus(m *model.Match) model.Status {
	company, candidate := m.DecisionOf(model.SideCompany), m.DecisionOf(model.SideCandidate)
	switch {
	case company == model.ActionNotInterested:
		return model.StatusRejectedByCompany
	case candidate == model.ActionNotInterested:
		return model.StatusRejectedByCandidate
	case company == model.ActionInterested && candidate == model.ActionInterested:
		return model.StatusBothInterested
	case m.Status == model.StatusExpired:
		return model.StatusExpired
	case m.ViewedByCompanyAt != nil && m.ViewedByCandidateAt != nil:
		return model.StatusBothViewed
	case m.ViewedByCompanyAt != nil:
		return model.StatusViewedByCompany
	case m.ViewedByCandidateAt != nil:
		return model.StatusViewedByCandidate
	}
	return model.StatusNew
}

// CanExpire reports whether the expiry sweep may move a match in status s
// to expired.
func CanExpire(s model.Status) bool {
	return !s.IsTerminal() && s != model.StatusBothInterested
}

// ExpirableStatuses lists the statuses CanExpire accepts.
func ExpirableStatuses() []model.Status {
	var out []model.Status
	for _, s := range model.Statuses {
		if CanExpire(s) {
			out = append(out, s)
		}
	}
	return out
}
