package judge

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// TrueOrFalse structured judge verdict
type TrueOrFalse struct {
	Result bool `json:"result" describe:"true when the evaluated result is equivalent to the ground truth result, false otherwise"`
}

// ParseError the judge response could not be read as a TrueOrFalse.
type ParseError struct {
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse judge response: %s", e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s (response %q)", msg, abbreviate(e.Text))
}

func (e *ParseError) Unwrap() error { return e.Err }

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseTrueOrFalse reads a JSON object with a boolean "result" field,
// optionally wrapped in a markdown code fence or surrounded by prose. A
// fenced block takes precedence over braces in the surrounding prose.
func ParseTrueOrFalse(text string) (TrueOrFalse, error) {
	body := text
	if m := fencedBlock.FindAllStringSubmatch(text, -1); len(m) > 0 {
		body = m[len(m)-1][1]
	}
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return TrueOrFalse{}, &ParseError{Text: text, Reason: "no JSON object found"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body[start:end+1]), &fields); err != nil {
		// prose braces ahead of the verdict: retry from the last object opener
		last := strings.LastIndex(body[:end], "{")
		if last <= start || json.Unmarshal([]byte(body[last:end+1]), &fields) != nil {
			return TrueOrFalse{}, &ParseError{Text: text, Reason: "invalid JSON", Err: err}
		}
	}
	raw, ok := fields["result"]
	if !ok {
		return TrueOrFalse{}, &ParseError{Text: text, Reason: `missing "result" field`}
	}
	var result *bool
	if err := json.Unmarshal(raw, &result); err != nil {
		return TrueOrFalse{}, &ParseError{Text: text, Reason: `"result" is not a boolean`, Err: err}
	}
	if result == nil {
		return TrueOrFalse{}, &ParseError{Text: text, Reason: `"result" is null`}
	}
	return TrueOrFalse{Result: *result}, nil
}

func abbreviate(s string) string {
	const limit = 200
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
