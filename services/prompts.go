package services

import "strings"

// Prompt templates keyed by research category. Templates carry
// {entity}, {location} and {category} placeholders that the research
// flow substitutes before use. Categories without a template fall back
// to the generic default.
var promptTemplates = map[string]string{
	"Demographics": "Summarize the demographic makeup and population trends of {location}, with attention to what they mean for {entity}.",
	"History":      "Describe the history of {entity} and the surrounding {location} community, noting turning points a congregation should know about.",
	"Community Needs": "Identify pressing community needs in {location} that {entity} is positioned to address.",
	"Local Economy":   "Describe the economic landscape of {location}: major employers, income trends, and areas of economic stress.",
	"Faith Landscape": "Describe the religious landscape of {location}: active congregations, traditions represented, and underserved groups.",
}

// defaultPromptTemplate is used when no category template matches.
const defaultPromptTemplate = "Provide a concise research summary about {category} for {entity} in {location}."

// insightSystemPrompt frames every AI insight request.
const insightSystemPrompt = `You are a research assistant helping a faith community understand itself and its neighborhood. Ground your answers in widely known public information, state uncertainty plainly, and keep responses to a few short paragraphs. Do not invent statistics.`

// insightFallback is rendered locally whenever the AI insight adapter
// fails; the search flow degrades to web results only.
const insightFallback = "An AI insight could not be generated for this search. Review the web results below."

// promptByType returns the template for a category, reporting whether a
// category-specific template existed.
func promptByType(category string) (string, bool) {
	tpl, ok := promptTemplates[category]
	if !ok {
		return defaultPromptTemplate, false
	}
	return tpl, true
}

// substitutePlaceholders replaces {name} tokens with the given values.
// Unknown tokens are left in place.
func substitutePlaceholders(template string, values map[string]string) string {
	out := template
	for name, value := range values {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
