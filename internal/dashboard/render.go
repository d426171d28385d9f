package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

var (
	brandColor = lipgloss.Color("#629AC7")
	mutedColor = lipgloss.Color("#64748B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brandColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	skillNameStyle = lipgloss.NewStyle().
			Bold(true).
			Width(18)

	barFillStyle  = lipgloss.NewStyle().Foreground(brandColor)
	barTrackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// ScoreColor picks the traffic-light color used for a score
func ScoreColor(score int) lipgloss.Color {
	switch {
	case score >= 75:
		return lipgloss.Color("#22C55E")
	case score >= 50:
		return lipgloss.Color("#F97316")
	default:
		return lipgloss.Color("#EF4444")
	}
}

// Render draws the dashboard as styled terminal text. A positive width fixes the
// panel width, otherwise panels size to their content.
func Render(view View, width int) string {
	box := panelStyle
	if width > 0 {
		box = box.Width(width - box.GetHorizontalFrameSize())
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(Subtitle))
	b.WriteString("\n")

	if !view.HasResult {
		b.WriteString(box.Render(mutedStyle.Render(MessageNoResult)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(panel(box, SectionScore, renderScore(view)))
	b.WriteString(panel(box, SectionSkills, renderSkills(view.Skills)))
	b.WriteString(panel(box, SectionJobMatches, renderList(view.JobMatches, "• ", MessageNoJobMatches)))
	b.WriteString(panel(box, SectionSuggestions, renderList(view.Suggestions, "→ ", MessageNoSuggestions)))
	return b.String()
}

func panel(box lipgloss.Style, title, body string) string {
	return box.Render(sectionStyle.Render(title)+"\n"+body) + "\n"
}

func renderScore(view View) string {
	if !view.ScoreValid {
		return mutedStyle.Render(MessageScoreUnavailable)
	}

	color := ScoreColor(view.Score)
	score := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%d", view.Score))
	label := lipgloss.NewStyle().Foreground(color).Render(view.ScoreLabel)
	return fmt.Sprintf("%s / 100  %s\n%s", score, label, bar(float64(view.Score)))
}

func renderSkills(skills []Skill) string {
	if len(skills) == 0 {
		return mutedStyle.Render(MessageNoSkills)
	}

	lines := make([]string, 0, len(skills))
	for _, skill := range skills {
		lines = append(lines, fmt.Sprintf("%s %s %3.0f%%",
			skillNameStyle.Render(skill.Name), bar(skill.Value), skill.Value))
	}
	return strings.Join(lines, "\n")
}

func renderList(items []string, bullet, empty string) string {
	if len(items) == 0 {
		return mutedStyle.Render(empty)
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, bullet+item)
	}
	return strings.Join(lines, "\n")
}

// bar renders a fixed-width horizontal bar for a value in [0,100]
func bar(value float64) string {
	filled := int(clamp(value, 0, 100) / 100 * barWidth)
	return barFillStyle.Render(strings.Repeat("█", filled)) +
		barTrackStyle.Render(strings.Repeat("░", barWidth-filled))
}
