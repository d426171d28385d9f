package ai

import (
	"atsquick/internal/config"
)

// defaultAnalysisPrompt is the built-in instruction sent with every resume
const defaultAnalysisPrompt = `You are an ATS resume analysis AI.

Analyze the attached resume PDF and return ONLY valid JSON.

{
  "score": number (0-100),
  "skills": { "React": number, "JavaScript": number },
  "jobMatches": [string],
  "suggestions": [string]
}

Scoring rules:
- Normalize dates before judging experience. Roles marked "present", "current" or
  "ongoing" are active, and recent dates are never a gap or a penalty.
- Fold synonyms of the same technology into one skill key, for example "React",
  "React.js" and "ReactJS" are all "React".
- Resumes outside software are scored on their transferable and domain skills.
  Never give a resume a zero score because it lacks technology keywords.
- Skill values are numbers from 0 to 100.
- jobMatches lists role names, best match first.
- suggestions lists concrete improvements, most important first.

Do not wrap the JSON in markdown and do not add commentary.`

// BuildAnalysisPrompt returns the default resume analysis instructions
func BuildAnalysisPrompt() string {
	return defaultAnalysisPrompt
}

// PromptResolver returns the instruction text for the next analysis.
// It reads the config on every call so a reloaded prompt file takes effect immediately.
type PromptResolver struct {
	config *config.Config
}

// NewPromptResolver creates a resolver over cfg. A nil cfg always yields the default.
func NewPromptResolver(cfg *config.Config) *PromptResolver {
	return &PromptResolver{config: cfg}
}

// AnalysisPrompt returns the file prompt, then the inline config prompt, then the default
func (r *PromptResolver) AnalysisPrompt() string {
	if r == nil || r.config == nil {
		return BuildAnalysisPrompt()
	}
	return resolvePrompt(
		r.config.GetLoadedAnalyzePrompt(),
		r.config.AI.CustomPrompts.AnalyzeResume,
		BuildAnalysisPrompt(),
	)
}

// resolvePrompt selects the correct prompt string based on priority order:
// a prompt loaded from a file, a prompt set in configuration, then the default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
