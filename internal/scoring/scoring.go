// Package scoring computes explainable compatibility scores between a
// candidate profile and a job posting.
//
// Everything here is pure: no I/O, no clock, no shared state. Two variants
// exist. The auto-match variant uses the keyword corpus of a CV analysis; the
// direct variant (application-time checks) has no keyword channel and gives
// its weight to location instead.
package scoring

import (
	"math"

	"jobmate/match-service/internal/model"
)

// AlgorithmVersion is stored on every match created from these rules.
const AlgorithmVersion = "1.0"

// Variant selects the weight set and whether the keyword channel is scored.
type Variant int

const (
	VariantAutoMatch Variant = iota
	VariantDirect
)

func (v Variant) String() string {
	if v == VariantDirect {
		return "direct"
	}
	return "auto_match"
}

// Weights are the per-criterion multipliers. They always sum to 1.0.
type Weights struct {
	Skills     float64
	Experience float64
	Education  float64
	Location   float64
	Keywords   float64
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Skills + w.Experience + w.Education + w.Location + w.Keywords
}

var (
	AutoMatchWeights = Weights{Skills: 0.40, Experience: 0.25, Education: 0.15, Location: 0.10, Keywords: 0.10}
	DirectWeights    = Weights{Skills: 0.40, Experience: 0.25, Education: 0.15, Location: 0.20}
)

// Weights returns the weight set used by the variant.
func (v Variant) Weights() Weights {
	if v == VariantDirect {
		return DirectWeights
	}
	return AutoMatchWeights
}

// Result is the output of one candidate/job comparison.
type Result struct {
	Overall   float64              `json:"overall"`
	Variant   string               `json:"variant"`
	Grade     string               `json:"grade"`
	Breakdown model.ScoreBreakdown `json:"breakdown"`
	Reasons   []string             `json:"reasons"`
	Concerns  []string             `json:"concerns"`
}

// ScoreVariant compares a candidate to a job with an explicit variant.
// Missing optional data scores neutral; nil candidate or job are treated as
// empty records.
func ScoreVariant(v Variant, candidate *model.Candidate, snapshot *model.CVSnapshot, job *model.Job) Result {
	if candidate == nil {
		candidate = &model.Candidate{}
	}
	if job == nil {
		job = &model.Job{}
	}
	in := profileOf(candidate, snapshot)

	var b model.ScoreBreakdown
	b.Skills = scoreSkills(in.skills, job.RequiredSkills, job.NiceToHaveSkills)
	b.Experience = scoreExperience(in.years, job.MinExperienceYears, job.MaxExperienceYears)
	b.Education = scoreEducation(in.education, job.EducationLevel)
	b.Location = scoreLocation(candidate, job)

	w := v.Weights()
	overall := w.Skills*b.Skills.Score +
		w.Experience*b.Experience.Score +
		w.Education*b.Education.Score +
		w.Location*b.Location.Score

	if v == VariantAutoMatch {
		var keywords []string
		if snapshot != nil {
			keywords = snapshot.Keywords
		}
		kw := scoreKeywords(keywords, job)
		b.Keywords = &kw
		overall += w.Keywords * kw.Score
	}

	overall = clamp(round1(overall))
	return Result{
		Overall:   overall,
		Variant:   v.String(),
		Grade:     Grade(overall),
		Breakdown: b,
		Reasons:   reasons(b),
		Concerns:  concerns(b),
	}
}

// profile is the candidate side of a comparison after merging the profile
// with the CV extraction.
type profile struct {
	skills    []string
	years     float64
	education string
}

func profileOf(c *model.Candidate, snap *model.CVSnapshot) profile {
	p := profile{
		skills:    append([]string(nil), c.Skills...),
		years:     c.ExperienceYears,
		education: c.EducationLevel,
	}
	if snap == nil {
		return p
	}
	p.skills = append(p.skills, snap.Extracted.TechnicalSkills...)
	p.skills = append(p.skills, snap.Extracted.SoftSkills...)
	if snap.Extracted.TotalExperienceYears > 0 {
		p.years = snap.Extracted.TotalExperienceYears
	}
	if snap.Extracted.EducationLevel != "" {
		p.education = snap.Extracted.EducationLevel
	}
	return p
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func clamp(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 100:
		return 100
	}
	return x
}
