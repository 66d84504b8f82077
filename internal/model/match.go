package model

import (
	"fmt"
	"time"
)

// Status values mirror the matches.status column.
type Status string

const (
	StatusNew                 Status = "new"
	StatusViewedByCompany     Status = "viewed_by_company"
	StatusViewedByCandidate   Status = "viewed_by_candidate"
	StatusBothViewed          Status = "both_viewed"
	StatusBothInterested      Status = "both_interested"
	StatusRejectedByCompany   Status = "rejected_by_company"
	StatusRejectedByCandidate Status = "rejected_by_candidate"
	StatusExpired             Status = "expired"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusNew, StatusViewedByCompany, StatusViewedByCandidate, StatusBothViewed,
	StatusBothInterested, StatusRejectedByCompany, StatusRejectedByCandidate, StatusExpired,
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// IsTerminal reports whether no further automatic notification is sent for
// a match in this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejectedByCompany, StatusRejectedByCandidate, StatusExpired:
		return true
	}
	return false
}

// Side identifies which party acts on a match.
type Side string

const (
	SideCandidate Side = "candidate"
	SideCompany   Side = "company"
)

// ParseSide converts a raw string to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideCandidate, SideCompany:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Action is what one side did on a match. interested and not_interested
// are decisions; applied and contacted are informational.
type Action string

const (
	ActionInterested    Action = "interested"
	ActionNotInterested Action = "not_interested"
	ActionApplied       Action = "applied"
	ActionContacted     Action = "contacted"
)

// ParseAction converts a raw string to an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionInterested, ActionNotInterested, ActionApplied, ActionContacted:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown match action %q", s)
}

// IsDecision reports whether a takes part in status derivation.
func (a Action) IsDecision() bool {
	return a == ActionInterested || a == ActionNotInterested
}

// SkillsDetail explains the skills sub-score.
type SkillsDetail struct {
	Score            float64  `json:"score"`
	MatchedSkills    []string `json:"matchedSkills"`
	MissingSkills    []string `json:"missingSkills"`
	MatchedCount     int      `json:"matchedCount"`
	RequiredCount    int      `json:"requiredCount"`
	NiceMatchedCount int      `json:"niceMatchedCount"`
}

// ExperienceDetail explains the experience sub-score. RequiredMaxYears is nil
// when the job has no upper bound.
type ExperienceDetail struct {
	Score            float64  `json:"score"`
	CandidateYears   float64  `json:"candidateYears"`
	RequiredMinYears float64  `json:"requiredMinYears"`
	RequiredMaxYears *float64 `json:"requiredMaxYears,omitempty"`
	MeetsRequirement bool     `json:"meetsRequirement"`
}

// EducationDetail explains the education sub-score.
type EducationDetail struct {
	Score            float64 `json:"score"`
	CandidateLevel   string  `json:"candidateLevel"`
	RequiredLevel    string  `json:"requiredLevel"`
	MeetsRequirement bool    `json:"meetsRequirement"`
}

// LocationDetail explains the location sub-score.
type LocationDetail struct {
	Score             float64 `json:"score"`
	CandidateLocation string  `json:"candidateLocation"`
	JobLocation       string  `json:"jobLocation"`
	IsRemote          bool    `json:"isRemote"`
	MatchType         string  `json:"matchType"`
}

// KeywordsDetail explains the keywords sub-score.
type KeywordsDetail struct {
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matchedKeywords"`
	JobKeywordCount int      `json:"jobKeywordCount"`
}

// ScoreBreakdown is the per-criterion explanation stored in
// matches.match_details. Keywords is nil for the direct scoring variant.
type ScoreBreakdown struct {
	Skills     SkillsDetail     `json:"skills"`
	Experience ExperienceDetail `json:"experience"`
	Education  EducationDetail  `json:"education"`
	Location   LocationDetail   `json:"location"`
	Keywords   *KeywordsDetail  `json:"keywords,omitempty"`
}

// Match pairs one candidate with one job. At most one exists per pair.
type Match struct {
	ID               int64          `json:"id"`
	CandidateID      int64          `json:"candidateId"`
	JobID            int64          `json:"jobId"`
	CVAnalysisID     *int64         `json:"cvAnalysisId,omitempty"`
	Score            float64        `json:"score"`
	Breakdown        ScoreBreakdown `json:"breakdown"`
	Reasons          []string       `json:"reasons"`
	Concerns         []string       `json:"concerns"`
	Status           Status         `json:"status"`
	IsAutoMatched    bool           `json:"isAutoMatched"`
	IsMutualInterest bool           `json:"isMutualInterest"`
	AlgorithmVersion string         `json:"algorithmVersion"`

	IsFavoriteCompany   bool `json:"isFavoriteCompany"`
	IsFavoriteCandidate bool `json:"isFavoriteCandidate"`

	CompanyNotifiedAt   *time.Time `json:"companyNotifiedAt,omitempty"`
	CandidateNotifiedAt *time.Time `json:"candidateNotifiedAt,omitempty"`
	ViewedByCompanyAt   *time.Time `json:"viewedByCompanyAt,omitempty"`
	ViewedByCandidateAt *time.Time `json:"viewedByCandidateAt,omitempty"`

	CompanyAction     *Action    `json:"companyAction,omitempty"`
	CandidateAction   *Action    `json:"candidateAction,omitempty"`
	CompanyDecision   *Action    `json:"companyDecision,omitempty"`
	CandidateDecision *Action    `json:"candidateDecision,omitempty"`
	CompanyActionAt   *time.Time `json:"companyActionAt,omitempty"`
	CandidateActionAt *time.Time `json:"candidateActionAt,omitempty"`
	CompanyNotes      *string    `json:"companyNotes,omitempty"`
	CandidateNotes    *string    `json:"candidateNotes,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ViewedAt returns the viewed timestamp of the given side.
func (m *Match) ViewedAt(side Side) *time.Time {
	if side == SideCompany {
		return m.ViewedByCompanyAt
	}
	return m.ViewedByCandidateAt
}

// ActionOf returns the latest action of the given side, or "" when none.
func (m *Match) ActionOf(side Side) Action {
	a := m.CandidateAction
	if side == SideCompany {
		a = m.CompanyAction
	}
	if a == nil {
		return ""
	}
	return *a
}

// DecisionOf returns the latest interested or not_interested of the given
// side, or "" when the side has not decided.
func (m *Match) DecisionOf(side Side) Action {
	d := m.CandidateDecision
	if side == SideCompany {
		d = m.CompanyDecision
	}
	if d == nil {
		return ""
	}
	return *d
}

// MatchFilter narrows a match listing. Zero values mean "any".
type MatchFilter struct {
	CandidateID   int64
	JobID         int64
	CompanyUserID int64
	Status        Status
	MinScore      float64
	Limit         int
}

// MatchStats summarises the matches visible to one side.
type MatchStats struct {
	Total          int     `json:"total"`
	New            int     `json:"new"`
	MutualInterest int     `json:"mutualInterest"`
	AverageScore   float64 `json:"averageScore"`
}
