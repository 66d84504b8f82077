// Package store persists matches and reads the candidate, job and CV
// analysis records the matcher consumes.
//
// Two implementations share one method set: Postgres for the service and
// Memory for tests and local runs. Both enforce at most one match per
// (candidate, job) pair and report a racing insert as
// apperr.ErrDuplicateMatch.
package store

import (
	"jobmate/match-service/internal/lifecycle"
	"jobmate/match-service/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

func listLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	}
	return n
}

func expirable() []string {
	statuses := lifecycle.ExpirableStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// sideColumns names the per-side columns of the matches table.
type sideColumns struct {
	viewed, action, decision, actionAt, notes, favorite, notified string
}

func columnsFor(side model.Side) sideColumns {
	if side == model.SideCompany {
		return sideColumns{
			viewed:   "viewed_by_company_at",
			action:   "company_action",
			decision: "company_decision",
			actionAt: "company_action_at",
			notes:    "company_notes",
			favorite: "is_favorite_company",
			notified: "company_notified_at",
		}
	}
	return sideColumns{
		viewed:   "viewed_by_candidate_at",
		action:   "candidate_action",
		decision: "candidate_decision",
		actionAt: "candidate_action_at",
		notes:    "candidate_notes",
		favorite: "is_favorite_candidate",
		notified: "candidate_notified_at",
	}
}

var (
	_ lifecycle.Store = (*Postgres)(nil)
	_ lifecycle.Store = (*Memory)(nil)
)
