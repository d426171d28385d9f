package types

// AnalysisResult is the model's evaluation of a resume as a JSON object.
// Fields are kept as decoded so that producer output passes through verbatim;
// consumers read score, skills, jobMatches and suggestions defensively.
type AnalysisResult map[string]any

// Well-known AnalysisResult keys
const (
	FieldScore       = "score"
	FieldSkills      = "skills"
	FieldJobMatches  = "jobMatches"
	FieldSuggestions = "suggestions"
)

// ContactMessage represents a contact form submission
type ContactMessage struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// ContactResponse is returned by the contact endpoint
type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
