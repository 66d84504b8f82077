// Package model defines the data contracts shared by the match service.
//
// Candidate, Job and CVSnapshot are owned by other subsystems and only read
// here. Match is owned by this service.
package model

import (
	"strings"
	"time"
)

// Candidate mirrors the candidates table row relevant to scoring.
type Candidate struct {
	ID                int64    `json:"id"`
	UserID            int64    `json:"userId"`
	FullName          string   `json:"fullName"`
	Skills            []string `json:"skills"`
	ExperienceYears   float64  `json:"experienceYears"`
	EducationLevel    string   `json:"educationLevel"`
	City              string   `json:"city"`
	Country           string   `json:"country"`
	WillingToRelocate bool     `json:"willingToRelocate"`
	DesiredSalaryMin  *int     `json:"desiredSalaryMin,omitempty"`
	DesiredSalaryMax  *int     `json:"desiredSalaryMax,omitempty"`
	IsAvailable       bool     `json:"isAvailable"`
	IsPublic          bool     `json:"isPublic"`
}

// RemoteMode describes how much of a job can be done remotely.
type RemoteMode string

const (
	RemoteNone   RemoteMode = "none"
	RemoteHybrid RemoteMode = "hybrid"
	RemoteFull   RemoteMode = "full"
)

// Job mirrors the jobs table row relevant to scoring and auto-matching.
type Job struct {
	ID                 int64      `json:"id"`
	CompanyUserID      int64      `json:"companyUserId"`
	CompanyName        string     `json:"companyName"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	RequiredSkills     []string   `json:"requiredSkills"`
	NiceToHaveSkills   []string   `json:"niceToHaveSkills"`
	MinExperienceYears float64    `json:"minExperienceYears"`
	MaxExperienceYears *float64   `json:"maxExperienceYears,omitempty"`
	EducationLevel     string     `json:"educationLevel"`
	IsRemote           bool       `json:"isRemote"`
	RemoteMode         RemoteMode `json:"remoteMode"`
	City               string     `json:"city"`
	Country            string     `json:"country"`
	SalaryMin          *int       `json:"salaryMin,omitempty"`
	SalaryMax          *int       `json:"salaryMax,omitempty"`
	MatchThreshold     *float64   `json:"matchThreshold,omitempty"`
	AutoMatch          bool       `json:"autoMatch"`
	IsActive           bool       `json:"isActive"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// FullyRemote reports whether location is irrelevant for this job.
// A remote job without an explicit mode counts as fully remote.
func (j *Job) FullyRemote() bool {
	if !j.IsRemote {
		return false
	}
	switch RemoteMode(strings.ToLower(string(j.RemoteMode))) {
	case RemoteHybrid, RemoteNone:
		return false
	}
	return true
}

// IsExpired reports whether the job posting is past its expiry date.
func (j *Job) IsExpired(now time.Time) bool {
	return j.ExpiresAt != nil && !j.ExpiresAt.After(now)
}

// Threshold returns the job's own match threshold, or fallback when unset.
func (j *Job) Threshold(fallback float64) float64 {
	if j.MatchThreshold != nil && *j.MatchThreshold > 0 {
		return *j.MatchThreshold
	}
	return fallback
}

// Extraction is the structured output of CV analysis, stored as JSONB in
// cv_analyses.extracted_data.
type Extraction struct {
	TechnicalSkills      []string `json:"technicalSkills"`
	SoftSkills           []string `json:"softSkills"`
	Languages            []string `json:"languages"`
	TotalExperienceYears float64  `json:"totalExperienceYears"`
	EducationLevel       string   `json:"educationLevel"`
}

// CVSnapshot is the latest analysed CV of a candidate.
type CVSnapshot struct {
	ID          int64      `json:"id"`
	CandidateID int64      `json:"candidateId"`
	Extracted   Extraction `json:"extractedData"`
	Keywords    []string   `json:"keywords"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CandidateSnapshot pairs a candidate with their latest CV analysis.
type CandidateSnapshot struct {
	Candidate Candidate
	Snapshot  CVSnapshot
}
