package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"jobmate/match-service/internal/model"
)

// Neutral is the sub-score used when either side lacks the data a criterion
// needs (unknown location, empty keyword corpus).
const Neutral = 70.0

const (
	noRequiredSkillsScore = 80.0

	requiredSkillsShare = 80.0
	niceSkillsShare     = 20.0

	missingYearPenalty  = 15.0
	extraYearPenalty    = 5.0
	overqualifiedFloor  = 70.0
	oneTierBelowScore   = 70.0
	educationGapPenalty = 20.0
	educationFloor      = 30.0

	partialCityScore         = 80.0
	sameCountryRelocateScore = 70.0
	sameCountryStayScore     = 50.0
	otherCityRelocateScore   = 50.0
	otherCityStayScore       = 40.0
	otherCountryRelocate     = 50.0
	otherCountryStay         = 30.0

	titleWordMinLen       = 4
	descriptionWordMinLen = 5
	descriptionSample     = 20
	keywordCoverage       = 0.3
	maxReportedKeywords   = 10
)

func scoreSkills(candidate, required, nice []string) model.SkillsDetail {
	have := toSet(candidate)
	req := toSet(required)
	niceSet := toSet(nice)

	if len(req) == 0 {
		return model.SkillsDetail{
			Score:            noRequiredSkillsScore,
			MatchedSkills:    sortedKeys(intersect(have, niceSet)),
			MissingSkills:    []string{},
			NiceMatchedCount: len(intersect(have, niceSet)),
		}
	}

	matchedReq := intersect(have, req)
	matchedNice := intersect(have, niceSet)

	reqRatio := float64(len(matchedReq)) / float64(len(req))
	niceRatio := 0.0
	if len(niceSet) > 0 {
		niceRatio = float64(len(matchedNice)) / float64(len(niceSet))
	}
	score := math.Min(100, requiredSkillsShare*reqRatio+niceSkillsShare*niceRatio)

	matched := make(map[string]struct{}, len(matchedReq)+len(matchedNice))
	for s := range matchedReq {
		matched[s] = struct{}{}
	}
	for s := range matchedNice {
		matched[s] = struct{}{}
	}
	missing := make(map[string]struct{})
	for s := range req {
		if _, ok := have[s]; !ok {
			missing[s] = struct{}{}
		}
	}

	return model.SkillsDetail{
		Score:            round1(score),
		MatchedSkills:    sortedKeys(matched),
		MissingSkills:    sortedKeys(missing),
		MatchedCount:     len(matchedReq),
		RequiredCount:    len(req),
		NiceMatchedCount: len(matchedNice),
	}
}

// scoreExperience compares years against [min, max]. A nil or non-positive
// max means no upper bound.
func scoreExperience(years, min float64, max *float64) model.ExperienceDetail {
	years = math.Max(0, years)
	min = math.Max(0, min)
	upper := math.Inf(1)
	if max != nil && *max > 0 {
		upper = math.Max(*max, min)
	}

	var score float64
	switch {
	case years < min:
		score = math.Max(0, 100-missingYearPenalty*(min-years))
	case years > upper:
		score = math.Max(overqualifiedFloor, 100-extraYearPenalty*(years-upper))
	default:
		score = 100
	}

	d := model.ExperienceDetail{
		Score:            round1(score),
		CandidateYears:   years,
		RequiredMinYears: min,
		MeetsRequirement: years >= min && years <= upper,
	}
	if !math.IsInf(upper, 1) {
		d.RequiredMaxYears = &upper
	}
	return d
}

// scoreEducation compares tiers. A job without a requirement scores 100; an
// unrecognised requirement is read as bac+3.
func scoreEducation(candidateLabel, requiredLabel string) model.EducationDetail {
	d := model.EducationDetail{
		CandidateLevel: strings.TrimSpace(candidateLabel),
		RequiredLevel:  strings.TrimSpace(requiredLabel),
	}
	if d.RequiredLevel == "" {
		d.Score = 100
		d.MeetsRequirement = true
		return d
	}

	required, ok := ParseLevel(requiredLabel)
	if !ok {
		required = LevelBac3
	}
	candidate, _ := ParseLevel(candidateLabel)

	gap := int(required) - int(candidate)
	switch {
	case gap <= 0:
		d.Score = 100
		d.MeetsRequirement = true
	case gap == 1:
		d.Score = oneTierBelowScore
	default:
		d.Score = math.Max(educationFloor, 100-educationGapPenalty*float64(gap))
	}
	return d
}

func scoreLocation(c *model.Candidate, j *model.Job) model.LocationDetail {
	d := model.LocationDetail{
		CandidateLocation: joinLocation(c.City, c.Country),
		JobLocation:       joinLocation(j.City, j.Country),
		IsRemote:          j.IsRemote,
	}
	if j.FullyRemote() {
		d.Score, d.MatchType = 100, "remote"
		return d
	}

	cc, jc := canonical(c.City), canonical(j.City)
	ck, jk := canonical(c.Country), canonical(j.Country)
	relocate := c.WillingToRelocate

	switch {
	case cc != "" && jc != "" && cc == jc:
		d.Score, d.MatchType = 100, "same_city"
	case cc != "" && jc != "" && (strings.Contains(cc, jc) || strings.Contains(jc, cc)):
		d.Score, d.MatchType = partialCityScore, "partial_city"
	case ck != "" && jk != "" && ck == jk:
		d.Score, d.MatchType = pick(relocate, sameCountryRelocateScore, sameCountryStayScore), "same_country"
	case ck != "" && jk != "":
		d.Score, d.MatchType = pick(relocate, otherCountryRelocate, otherCountryStay), "other_country"
	case cc != "" && jc != "":
		d.Score, d.MatchType = pick(relocate, otherCityRelocateScore, otherCityStayScore), "other_city"
	default:
		d.Score, d.MatchType = Neutral, "unknown"
	}
	return d
}

func scoreKeywords(cvKeywords []string, j *model.Job) model.KeywordsDetail {
	jobKw := JobKeywords(j)
	if len(jobKw) == 0 {
		return model.KeywordsDetail{Score: Neutral, MatchedKeywords: []string{}}
	}
	cv := toSet(cvKeywords)
	if len(cv) == 0 {
		return model.KeywordsDetail{Score: Neutral, MatchedKeywords: []string{}, JobKeywordCount: len(jobKw)}
	}

	matched := sortedKeys(intersect(cv, jobKw))
	score := math.Min(100, 100*float64(len(matched))/math.Max(1, keywordCoverage*float64(len(jobKw))))
	if len(matched) > maxReportedKeywords {
		matched = matched[:maxReportedKeywords]
	}
	return model.KeywordsDetail{
		Score:           round1(score),
		MatchedKeywords: matched,
		JobKeywordCount: len(jobKw),
	}
}

// JobKeywords derives the keyword set of a job: title words longer than
// three characters, the first twenty description words longer than four,
// and the required skills.
func JobKeywords(j *model.Job) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range tokenize(j.Title) {
		if utf8.RuneCountInString(w) >= titleWordMinLen {
			set[w] = struct{}{}
		}
	}
	n := 0
	for _, w := range tokenize(j.Description) {
		if n == descriptionSample {
			break
		}
		if utf8.RuneCountInString(w) >= descriptionWordMinLen {
			set[w] = struct{}{}
			n++
		}
	}
	for _, s := range j.RequiredSkills {
		if c := canonical(s); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'`")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// canonical lower-cases and collapses whitespace so "  Machine   Learning"
// and "machine learning" compare equal.
func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if c := canonical(it); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinLocation(city, country string) string {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	}
	return country
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}
