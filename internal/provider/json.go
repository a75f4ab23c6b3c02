package provider

import (
	"regexp"
	"strings"
)

var (
	scratchpadRe = regexp.MustCompile(`(?s)<scratchpad>.*?</scratchpad>`)
	fencesRe     = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
)

// CleanJSON strips scratchpad tags and markdown fences from a model
// response and slices out the outermost JSON object. Models wrap their
// output unpredictably; callers unmarshal the result themselves.
func CleanJSON(text string) string {
	text = scratchpadRe.ReplaceAllString(text, "")

	if matches := fencesRe.FindStringSubmatch(text); len(matches) > 1 {
		text = matches[1]
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// Truncate shortens s for error messages.
func Truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
