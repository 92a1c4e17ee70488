package evaluation

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// ExtractJSON returns the interior of the first ```json fenced block in text,
// or the whole trimmed text when there is none.
func ExtractJSON(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Parse recovers a Result from accumulated model output.
func Parse(text string) (Result, error) {
	payload := ExtractJSON(text)
	if payload == "" {
		return Result{}, &ParseError{Raw: text, Err: errors.New("empty output")}
	}
	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return Result{}, &ParseError{Raw: text, Err: err}
	}
	return result, nil
}
