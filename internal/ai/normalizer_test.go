package ai

import (
	stderrors "errors"
	"testing"

	"atsquick/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore float64
	}{
		{
			name:      "plain object",
			raw:       `{"score": 72, "skills": {"Go": 80}, "jobMatches": [], "suggestions": []}`,
			wantScore: 72,
		},
		{
			name:      "json fence",
			raw:       "```json\n{\"score\": 81}\n```",
			wantScore: 81,
		},
		{
			name:      "bare fence",
			raw:       "```\n{\"score\": 64}\n```\n",
			wantScore: 64,
		},
		{
			name:      "fence with surrounding whitespace",
			raw:       "\n\n  ```json\n{\"score\": 55}```  \n",
			wantScore: 55,
		},
		{
			name:      "prose around object",
			raw:       "Here is the analysis you asked for:\n{\"score\": 90, \"suggestions\": [\"Add metrics\"]}\nLet me know if you need more.",
			wantScore: 90,
		},
		{
			name:      "fenced object with trailing prose",
			raw:       "```json\n{\"score\": 47}\n```\nThe candidate is promising.",
			wantScore: 47,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			score, ok := result["score"].(float64)
			if !ok {
				t.Fatalf("Expected numeric score, got %T", result["score"])
			}
			if score != tt.wantScore {
				t.Errorf("Expected score %v, got %v", tt.wantScore, score)
			}
		})
	}
}

func TestNormalizeKeepsUnknownFields(t *testing.T) {
	result, err := Normalize(`{"score": 70, "summary": "extra field"}`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result["summary"] != "extra field" {
		t.Errorf("Expected unknown fields to pass through, got %v", result)
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no braces", raw: "I could not read the resume."},
		{name: "empty", raw: ""},
		{name: "array of numbers", raw: `[1, 2, 3]`},
		{name: "broken object", raw: `{"score": 10,`},
		{name: "null", raw: "null"},
		{name: "reversed braces", raw: "} nothing here {"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if err == nil {
				t.Fatal("Expected normalization failure")
			}

			if code := errors.CodeOf(err); code != errors.ErrCodeNormalizationFailed {
				t.Errorf("Expected code %s, got %s", errors.ErrCodeNormalizationFailed, code)
			}

			var normErr *NormalizationError
			if !stderrors.As(err, &normErr) {
				t.Fatalf("Expected *NormalizationError in chain, got %T", err)
			}
			if normErr.Raw != tt.raw {
				t.Errorf("Expected raw text %q to be preserved, got %q", tt.raw, normErr.Raw)
			}
		})
	}
}

func TestNormalizeArrayWithObjectInside(t *testing.T) {
	// The brace span of an array payload is still a single object
	result, err := Normalize(`[{"score": 10}]`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result["score"] != float64(10) {
		t.Errorf("Expected inner object, got %v", result)
	}
}
