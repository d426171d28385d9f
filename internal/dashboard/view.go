// Package dashboard turns a stored analysis into a defensive view model and
// renders it for the terminal.
package dashboard

import (
	"encoding/json"
	"math"
	"sort"

	"atsquick/internal/types"
)

// Texts shown by the dashboard
const (
	Title    = "Resume Analysis Dashboard"
	Subtitle = "AI-powered evaluation of your resume with ATS-focused insights"

	SectionScore       = "Resume Score"
	SectionSkills      = "Skills Breakdown"
	SectionJobMatches  = "Best Matching Job Roles"
	SectionSuggestions = "Improvement Suggestions"

	MessageScoreUnavailable = "Score unavailable. Please re-analyze your resume."
	MessageNoSkills         = "No skill data available."
	MessageNoJobMatches     = "No strong job matches detected. Consider improving key skills."
	MessageNoSuggestions    = "No improvement suggestions available. Your resume looks strong."
	MessageNoResult         = "No resume analysis found. Run `atsquick analyze <resume.pdf>` first."
)

// MaxSkills is the number of skills kept after sorting
const MaxSkills = 10

// Skill is one entry of the skills breakdown, clamped to [0,100]
type Skill struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// View is everything the renderers need. Every field is safe to use whatever the
// model returned.
type View struct {
	HasResult   bool     `json:"hasResult" yaml:"hasResult"`
	ScoreValid  bool     `json:"scoreValid" yaml:"scoreValid"`
	Score       int      `json:"score" yaml:"score"`
	ScoreLabel  string   `json:"scoreLabel,omitempty" yaml:"scoreLabel,omitempty"`
	Skills      []Skill  `json:"skills" yaml:"skills"`
	AllSkills   []Skill  `json:"-" yaml:"-"` // Every numeric skill in the same order, for exports
	JobMatches  []string `json:"jobMatches" yaml:"jobMatches"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

// BuildView derives the view from a stored result. A nil result gives a view
// with HasResult false.
func BuildView(result types.AnalysisResult) View {
	view := View{
		Skills:      []Skill{},
		AllSkills:   []Skill{},
		JobMatches:  []string{},
		Suggestions: []string{},
	}
	if result == nil {
		return view
	}
	view.HasResult = true

	if score, ok := toNumber(result[types.FieldScore]); ok && score >= 0 && score <= 100 {
		view.ScoreValid = true
		view.Score = int(math.Round(score))
		view.ScoreLabel = ScoreLabel(view.Score)
	}

	view.AllSkills = topSkills(result[types.FieldSkills], 0)
	view.Skills = view.AllSkills[:min(len(view.AllSkills), MaxSkills)]
	view.JobMatches = stringList(result[types.FieldJobMatches])
	view.Suggestions = stringList(result[types.FieldSuggestions])
	return view
}

// ScoreLabel names the band a valid score falls in
func ScoreLabel(score int) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 70:
		return "Strong"
	case score >= 50:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// topSkills keeps numeric entries, clamps them, and returns the strongest limit
// skills, or all of them when limit is zero. Ties are ordered by name.
func topSkills(raw any, limit int) []Skill {
	entries, ok := raw.(map[string]any)
	if !ok {
		return []Skill{}
	}

	skills := make([]Skill, 0, len(entries))
	for name, value := range entries {
		number, ok := toNumber(value)
		if !ok {
			continue
		}
		skills = append(skills, Skill{Name: name, Value: clamp(number, 0, 100)})
	}

	sort.Slice(skills, func(i, j int) bool {
		if skills[i].Value != skills[j].Value {
			return skills[i].Value > skills[j].Value
		}
		return skills[i].Name < skills[j].Name
	})

	if limit > 0 && len(skills) > limit {
		skills = skills[:limit]
	}
	return skills
}

// stringList keeps the string entries of a JSON array
func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	list := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			list = append(list, s)
		}
	}
	return list
}

// toNumber accepts the numeric shapes a decoded JSON value can take
func toNumber(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
