package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSONObject = errors.New("no JSON object in model response")

// DecodeReply unmarshals the JSON object a model was asked to return into v.
// Models wrap it in prose or a ```json fence often enough that both are
// tolerated: a fenced block anywhere in the reply is searched first, then
// the reply as a whole.
func DecodeReply(reply string, v any) error {
	obj, ok := replyObject(reply)
	if !ok {
		return ErrNoJSONObject
	}
	return json.Unmarshal([]byte(obj), v)
}

func replyObject(reply string) (string, bool) {
	if fenced, ok := fencedBlock(reply); ok {
		if obj, ok := firstObject(fenced); ok {
			return obj, true
		}
	}
	return firstObject(reply)
}

// fencedBlock returns the body of the first ``` fence, without the
// language tag on the opening line.
func fencedBlock(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return rest, true
	}
	return rest[:end], true
}

// firstObject returns the first outermost {...} in s. Braces inside JSON
// strings, such as {{companyName}} placeholders in a body, do not count.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	var depth int
	var inString, escaped bool
	for i := start; i < len(s); i++ {
		switch ch := s[i]; {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
