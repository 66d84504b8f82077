package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"jobmate/match-service/internal/model"
)

const maxListedMissingSkills = 3

// Grade buckets an overall score into a display label.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 80:
		return "Very good"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Fair"
	}
	return "Weak"
}

func reasons(b model.ScoreBreakdown) []string {
	var out []string

	switch s := b.Skills; {
	case s.Score >= 80 && s.RequiredCount > 0:
		out = append(out, fmt.Sprintf("Excellent skills match (%d/%d)", s.MatchedCount, s.RequiredCount))
	case s.Score >= 80:
		out = append(out, "No specific skills required")
	case s.Score >= 60:
		out = append(out, "Good skills match")
	}

	switch {
	case b.Experience.Score >= 90:
		out = append(out, "Experience fits the role")
	case b.Experience.Score >= 70:
		out = append(out, "Experience is close to the requirement")
	}

	switch {
	case b.Education.Score >= 90:
		out = append(out, "Education meets the requirement")
	case b.Education.Score >= 70:
		out = append(out, "Education is close to the requirement")
	}

	if b.Location.Score >= 90 {
		if b.Location.MatchType == "remote" {
			out = append(out, "Remote position")
		} else {
			out = append(out, "Location matches")
		}
	}

	if b.Keywords != nil && b.Keywords.Score >= 80 {
		out = append(out, "Strong keyword overlap with the job description")
	}

	if len(out) == 0 {
		out = append(out, "Profile meets the baseline criteria")
	}
	return out
}

func concerns(b model.ScoreBreakdown) []string {
	out := []string{}

	if missing := b.Skills.MissingSkills; len(missing) > 0 {
		if len(missing) > maxListedMissingSkills {
			missing = missing[:maxListedMissingSkills]
		}
		out = append(out, "Missing skills: "+strings.Join(missing, ", "))
	}

	e := b.Experience
	if e.Score < 60 && e.CandidateYears < e.RequiredMinYears {
		gap := round1(e.RequiredMinYears - e.CandidateYears)
		out = append(out, fmt.Sprintf("Lacks %s year(s) of experience", strconv.FormatFloat(gap, 'f', -1, 64)))
	}

	if b.Education.Score < 60 {
		out = append(out, "Education below requirements")
	}

	if b.Location.Score < 60 && !b.Location.IsRemote {
		out = append(out, "Distant location")
	}
	return out
}
