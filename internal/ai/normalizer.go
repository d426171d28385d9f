package ai

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"atsquick/internal/errors"
	"atsquick/internal/types"
)

// codeFence matches markdown fence markers, language tagged or bare, with an optional trailing newline
var codeFence = regexp.MustCompile("```(?:json)?\r?\n?")

// NormalizationError reports model output that holds no recoverable JSON object.
// Raw is kept for server-side logs and must never reach a client.
type NormalizationError struct {
	Raw string
	Err error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("model output is not a JSON object (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// Normalize recovers a JSON object from free-form model text.
//
// The fence markers are stripped and the remainder parsed first. If that fails the
// span from the first '{' to the last '}' of the raw text is parsed instead. This is
// a cheap heuristic: prose containing stray braces around the object defeats it.
func Normalize(raw string) (types.AnalysisResult, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
	result, firstErr := parseObject(cleaned)
	if firstErr == nil {
		return result, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, normalizationFailure(raw, firstErr)
	}

	result, err := parseObject(raw[start : end+1])
	if err != nil {
		return nil, normalizationFailure(raw, stderrors.Join(firstErr, err))
	}
	return result, nil
}

// parseObject parses text that must hold exactly one JSON object
func parseObject(text string) (types.AnalysisResult, error) {
	if text == "" {
		return nil, fmt.Errorf("empty output")
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("output is JSON null")
	}
	return result, nil
}

func normalizationFailure(raw string, cause error) error {
	return errors.NewAIError(errors.ErrCodeNormalizationFailed,
		"Failed to parse AI response",
		&NormalizationError{Raw: raw, Err: cause})
}
