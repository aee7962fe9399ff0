package completion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

const systemPrompt = "You are a legal services AI assistant that analyzes client descriptions and recommends appropriate legal services. You must respond with valid JSON only."

func buildAnalysisPrompt(description string, services []domain.ServiceCatalogEntry) string {
	var b strings.Builder
	b.WriteString("You are a legal services AI assistant. Analyze this legal need and recommend appropriate services.\n\n")
	fmt.Fprintf(&b, "User Request: %q\n\n", strings.TrimSpace(description))
	b.WriteString("Available Services:\n")
	for _, s := range services {
		fmt.Fprintf(&b, "- %s: %s\n", s.Value, s.Description)
	}
	b.WriteString(`
Respond ONLY with valid JSON in this format (no markdown, no explanations):
{
  "recommended_services": ["service1", "service2"],
  "reasoning": "Brief explanation of why these services were recommended"
}

Recommend 1-3 most appropriate services from the list above.`)
	return b.String()
}

var (
	jsonFence    = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	genericFence = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// extractJSON unwraps fenced blocks first, then falls back to the outermost object.
func extractJSON(raw string) string {
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := genericFence.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return extractJSONObject(raw)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
