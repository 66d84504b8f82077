package scoring

import "strings"

// Level is an ordinal education tier. Gaps are counted in tiers.
type Level int

const (
	LevelNone Level = iota
	LevelBac
	LevelBac2
	LevelBac3
	LevelBac4
	LevelBac5
	LevelDoctorate
)

var levelNames = [...]string{"none", "bac", "bac+2", "bac+3", "bac+4", "bac+5", "doctorate"}

func (l Level) String() string {
	if l < LevelNone || l > LevelDoctorate {
		return "unknown"
	}
	return levelNames[l]
}

// levelAliases is checked from the highest tier down; "bac+5" contains "bac"
// and "bachelor" contains "bac", so order matters.
var levelAliases = []struct {
	level   Level
	needles []string
}{
	{LevelDoctorate, []string{"doctorat", "doctorate", "phd", "ph.d"}},
	{LevelBac5, []string{"bac+5", "master", "msc", "mba", "ingenieur", "ingénieur", "engineer"}},
	{LevelBac4, []string{"bac+4", "maitrise", "maîtrise", "m1"}},
	{LevelBac3, []string{"bac+3", "licence", "bachelor", "bsc"}},
	{LevelBac2, []string{"bac+2", "bts", "dut", "deug", "associate"}},
	{LevelBac, []string{"bac", "baccalaur", "highschool", "high school"}},
	{LevelNone, []string{"none", "aucun"}},
}

// ParseLevel maps a free-text education label to a tier. The boolean is
// false when nothing in the label is recognised.
func ParseLevel(label string) (Level, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return LevelNone, false
	}
	compact := strings.ReplaceAll(s, " ", "")
	for _, a := range levelAliases {
		for _, n := range a.needles {
			if strings.Contains(s, n) || strings.Contains(compact, strings.ReplaceAll(n, " ", "")) {
				return a.level, true
			}
		}
	}
	return LevelNone, false
}
