package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
)

// degradedLimit bounds how much raw response text the degraded fallback
// keeps.
const degradedLimit = 1500

// analysisResult is the canonical enrichment schema.
type analysisResult struct {
	ExecutiveSummary   string          `json:"executive_summary"`
	KeyTakeaways       []string        `json:"key_takeaways"`
	TechnicalDetails   string          `json:"technical_details"`
	ActionableItems    []string        `json:"actionable_items"`
	ThreatIntelligence string          `json:"threat_intelligence"`
	ToolsAndResources  string          `json:"tools_and_resources"`
	RelevanceScore     json.RawMessage `json:"relevance_score"`
}

func (r analysisResult) empty() bool {
	return r.ExecutiveSummary == "" && len(r.KeyTakeaways) == 0 && r.TechnicalDetails == "" &&
		len(r.ActionableItems) == 0 && r.ThreatIntelligence == "" && r.ToolsAndResources == ""
}

// parseResponse turns a model response into (summary, insights). It tries
// strict JSON first, then a bounded JSON-like substring, then a plain-text
// section split, and finally wraps the truncated raw text as a degraded
// insights block, so a model response is never silently dropped. The only
// not-ok case is an effectively empty response.
func parseResponse(raw string) (string, string, bool) {
	text := sanitize(raw)
	if strings.TrimSpace(text) == "" {
		return "", "", false
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(text), &result); err == nil && !result.empty() {
		return result.ExecutiveSummary, formatInsights(result), true
	}

	if extracted, ok := extractJSONObject(text); ok {
		if err := json.Unmarshal([]byte(extracted), &result); err == nil && !result.empty() {
			return result.ExecutiveSummary, formatInsights(result), true
		}
	}

	if summary, insights, ok := splitSections(text); ok {
		return summary, insights, true
	}

	if len(text) > degradedLimit {
		text = text[:degradedLimit] + "..."
	}
	insights := "UNPARSED MODEL RESPONSE:\n" + text
	summary := text
	if len(summary) > 300 {
		summary = summary[:300] + "..."
	}
	return summary, insights, true
}

// sanitize strips control characters and collapses runs of horizontal
// whitespace; stray control characters are a known cause of JSON parse
// failures in model output.
func sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := false
	for _, r := range raw {
		switch {
		case r == '\n':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t':
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		case r < 0x20 || r == 0x7f:
			// dropped
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	text := b.String()
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

// extractJSONObject scans for the outermost {...} substring, which rescues
// responses wrapped in prose or code fences.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// sectionKind matches a header line to one of the known analysis sections.
func sectionKind(line string) (string, bool) {
	lower := strings.ToLower(line)
	if len(line) > 120 {
		return "", false
	}
	switch {
	case strings.Contains(lower, "summary"):
		return "summary", true
	case strings.Contains(lower, "takeaway"), strings.Contains(lower, "key point"):
		return "takeaways", true
	case strings.Contains(lower, "technical"):
		return "technical", true
	case strings.Contains(lower, "actionable"), strings.Contains(lower, "action item"):
		return "actionable", true
	case strings.Contains(lower, "threat"):
		return "threat", true
	case strings.Contains(lower, "tools"), strings.Contains(lower, "resources"):
		return "tools", true
	case strings.Contains(lower, "relevance"):
		return "relevance", true
	}
	return "", false
}

// splitSections heuristically reconstructs summary/insights from a
// plain-text response whose headers mention the known section names.
func splitSections(text string) (string, string, bool) {
	sections := map[string][]string{}
	current := ""
	matched := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if kind, ok := sectionKind(trimmed); ok {
			current = kind
			matched++
			if rest := headerRemainder(trimmed); rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], trimmed)
		}
	}

	if matched < 2 {
		return "", "", false
	}

	summary := strings.Join(sections["summary"], "\n")

	var b strings.Builder
	writeSection := func(header, kind string) {
		lines := sections[kind]
		if len(lines) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	writeSection("KEY TAKEAWAYS:", "takeaways")
	writeSection("TECHNICAL DETAILS:", "technical")
	writeSection("ACTIONABLE ITEMS:", "actionable")
	writeSection("THREAT INTELLIGENCE:", "threat")
	writeSection("TOOLS & RESOURCES:", "tools")
	writeSection("RELEVANCE SCORE:", "relevance")

	insights := strings.TrimSpace(b.String())
	if summary == "" && insights == "" {
		return "", "", false
	}
	return summary, insights, true
}

// headerRemainder returns the text after a "Header: value" colon, if any.
func headerRemainder(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}

// formatInsights renders the structured sections as display text.
func formatInsights(result analysisResult) string {
	var b strings.Builder

	if len(result.KeyTakeaways) > 0 {
		b.WriteString("KEY TAKEAWAYS:\n")
		for _, takeaway := range result.KeyTakeaways {
			fmt.Fprintf(&b, "- %s\n", takeaway)
		}
		b.WriteString("\n")
	}

	if result.TechnicalDetails != "" {
		b.WriteString("TECHNICAL DETAILS:\n")
		b.WriteString(result.TechnicalDetails)
		b.WriteString("\n\n")
	}

	if len(result.ActionableItems) > 0 {
		b.WriteString("ACTIONABLE ITEMS:\n")
		for _, item := range result.ActionableItems {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	if result.ThreatIntelligence != "" {
		b.WriteString("THREAT INTELLIGENCE:\n")
		b.WriteString(result.ThreatIntelligence)
		b.WriteString("\n\n")
	}

	if result.ToolsAndResources != "" {
		b.WriteString("TOOLS & RESOURCES:\n")
		b.WriteString(result.ToolsAndResources)
		b.WriteString("\n\n")
	}

	if score := formatScore(result.RelevanceScore); score != "" {
		fmt.Fprintf(&b, "RELEVANCE SCORE: %s\n", score)
	}

	return strings.TrimSpace(b.String())
}

// formatScore tolerates both string and numeric relevance scores.
func formatScore(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	return strings.TrimSpace(string(raw))
}
