package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"portfolio-chat/internal/domain"
)

type projectSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Impact  string `json:"impact"`
}

func buildSystemInstruction(site domain.Site) (string, error) {
	projects, err := projectSummariesJSON(site.Projects)
	if err != nil {
		return "", err
	}
	owner := site.Owner

	lines := []string{
		fmt.Sprintf("You are the Professional Portfolio Assistant for %s.", owner.Name),
		fmt.Sprintf("Your purpose is to help visitors learn about %s's %s.", firstName(owner), purpose(site)),
		"",
		"KNOWLEDGE BASE:",
		"- Name: " + owner.Name,
	}
	lines = appendField(lines, "Title", owner.Title)
	lines = appendField(lines, "Contact", contactLine(owner))
	lines = appendField(lines, "Location", owner.Location)
	if len(owner.Skills) > 0 {
		lines = append(lines, "- Skills: "+strings.Join(owner.Skills, ", ")+".")
	}
	if len(owner.Experience) > 0 {
		lines = append(lines, "- Experience:")
		for _, e := range owner.Experience {
			lines = append(lines, "  * "+e)
		}
	}
	if len(owner.Certifications) > 0 {
		lines = append(lines, "- Certifications: "+strings.Join(owner.Certifications, ", ")+".")
	}
	lines = append(lines, "- Projects: "+projects)

	if len(site.Guardrails) > 0 {
		lines = append(lines, "", "STRICT GUARDRAILS:")
		for i, g := range site.Guardrails {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, g))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func appendField(lines []string, label, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return lines
	}
	return append(lines, "- "+label+": "+value)
}

func contactLine(p domain.Profile) string {
	parts := make([]string, 0, 2)
	for _, v := range []string{p.Phone, p.Email} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " | ")
}

func firstName(p domain.Profile) string {
	if n := strings.TrimSpace(p.FirstName); n != "" {
		return n
	}
	if fields := strings.Fields(p.Name); len(fields) > 0 {
		return fields[0]
	}
	return p.Name
}

func purpose(site domain.Site) string {
	if p := strings.TrimSpace(site.Purpose); p != "" {
		return p
	}
	return "career, skills, and projects"
}

// projectSummariesJSON keeps &, < and > literal so the model sees titles as
// written.
func projectSummariesJSON(projects []domain.Project) (string, error) {
	summaries := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, projectSummary{Title: p.Title, Summary: p.ShortDesc, Impact: p.Impact})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(summaries); err != nil {
		return "", fmt.Errorf("usecase: encode project summaries: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
