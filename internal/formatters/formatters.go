package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"atsquick/internal/dashboard"
	"atsquick/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "View", &ViewTextFormatter{})
	registry.RegisterFormatter("markdown", "View", &ViewMarkdownFormatter{})
	registry.RegisterFormatter("text", "AnalysisResult", resultAsView{&ViewTextFormatter{}})
	registry.RegisterFormatter("markdown", "AnalysisResult", resultAsView{&ViewMarkdownFormatter{}})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case dashboard.View:
		return "View"
	case types.AnalysisResult:
		return "AnalysisResult"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(yamlData), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// resultAsView formats a raw analysis result through its dashboard view
type resultAsView struct {
	inner Formatter
}

func (r resultAsView) Format(data any) (string, error) {
	result, ok := data.(types.AnalysisResult)
	if !ok {
		return "", fmt.Errorf("expected AnalysisResult, got %T", data)
	}
	return r.inner.Format(dashboard.BuildView(result))
}

func (r resultAsView) SupportedType() string {
	return "AnalysisResult"
}

// ViewTextFormatter handles plain text formatting for dashboard views
type ViewTextFormatter struct{}

func (vtf *ViewTextFormatter) Format(data any) (string, error) {
	view, ok := data.(dashboard.View)
	if !ok {
		return "", fmt.Errorf("expected View, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== RESUME ANALYSIS ===\n\n")
	if !view.HasResult {
		output.WriteString(dashboard.MessageNoResult)
		output.WriteString("\n")
		return output.String(), nil
	}

	output.WriteString("=== RESUME SCORE ===\n")
	if view.ScoreValid {
		output.WriteString(fmt.Sprintf("Score: %d/100 (%s)\n\n", view.Score, view.ScoreLabel))
	} else {
		output.WriteString(dashboard.MessageScoreUnavailable + "\n\n")
	}

	output.WriteString("=== SKILLS BREAKDOWN ===\n")
	if len(view.Skills) > 0 {
		for _, skill := range view.Skills {
			output.WriteString(fmt.Sprintf("- %s: %.0f%%\n", skill.Name, skill.Value))
		}
	} else {
		output.WriteString(dashboard.MessageNoSkills + "\n")
	}
	output.WriteString("\n")

	output.WriteString("=== BEST MATCHING JOB ROLES ===\n")
	writeNumbered(&output, view.JobMatches, dashboard.MessageNoJobMatches)
	output.WriteString("\n")

	output.WriteString("=== IMPROVEMENT SUGGESTIONS ===\n")
	writeNumbered(&output, view.Suggestions, dashboard.MessageNoSuggestions)

	return output.String(), nil
}

func (vtf *ViewTextFormatter) SupportedType() string {
	return "View"
}

// ViewMarkdownFormatter handles markdown formatting for dashboard views
type ViewMarkdownFormatter struct{}

func (vmf *ViewMarkdownFormatter) Format(data any) (string, error) {
	view, ok := data.(dashboard.View)
	if !ok {
		return "", fmt.Errorf("expected View, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# " + dashboard.Title + "\n\n")
	if !view.HasResult {
		output.WriteString(dashboard.MessageNoResult)
		output.WriteString("\n")
		return output.String(), nil
	}

	output.WriteString("## " + dashboard.SectionScore + "\n\n")
	if view.ScoreValid {
		output.WriteString(fmt.Sprintf("**Score:** %d/100 (%s)\n\n", view.Score, view.ScoreLabel))
	} else {
		output.WriteString("_" + dashboard.MessageScoreUnavailable + "_\n\n")
	}

	output.WriteString("## " + dashboard.SectionSkills + "\n\n")
	if len(view.Skills) > 0 {
		output.WriteString("| Skill | Level |\n|---|---|\n")
		for _, skill := range view.Skills {
			output.WriteString(fmt.Sprintf("| %s | %.0f%% |\n", escapeCell(skill.Name), skill.Value))
		}
	} else {
		output.WriteString("_" + dashboard.MessageNoSkills + "_\n")
	}
	output.WriteString("\n")

	output.WriteString("## " + dashboard.SectionJobMatches + "\n\n")
	writeNumbered(&output, view.JobMatches, "_"+dashboard.MessageNoJobMatches+"_")
	output.WriteString("\n")

	output.WriteString("## " + dashboard.SectionSuggestions + "\n\n")
	writeNumbered(&output, view.Suggestions, "_"+dashboard.MessageNoSuggestions+"_")

	return output.String(), nil
}

func (vmf *ViewMarkdownFormatter) SupportedType() string {
	return "View"
}

func writeNumbered(output *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		output.WriteString(empty + "\n")
		return
	}
	for i, item := range items {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
