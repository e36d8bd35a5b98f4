package oracle

import (
	"encoding/json"
	"strings"

	"sowmatch/internal/errs"
)

// DecodeJSON extracts the JSON object from an oracle reply into v. Markdown
// code fences and prose around the object are ignored. A missing, malformed,
// or truncated object is an OracleParseFailure; no repair is attempted.
func DecodeJSON(op, text string, v any) error {
	raw, ok := extractObject(text)
	if !ok {
		return errs.E(errs.OracleParseFailure, op, "oracle reply contains no JSON object")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errs.Wrap(errs.OracleParseFailure, op, err, "oracle reply does not match the expected schema")
	}
	return nil
}

// extractObject returns the first balanced {...} span of text that is valid
// JSON. A span that runs off the end means the reply was cut off, and nothing
// after it is considered.
func extractObject(text string) (string, bool) {
	text = trimFence(text)

	for from := 0; from < len(text); {
		i := strings.IndexByte(text[from:], '{')
		if i < 0 {
			return "", false
		}
		start := from + i
		end, ok := balancedEnd(text, start)
		if !ok {
			return "", false
		}
		if span := text[start:end]; json.Valid([]byte(span)) {
			return span, true
		}
		from = end
	}
	return "", false
}

// trimFence drops a Markdown code fence wrapping the whole reply.
func trimFence(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "```"); ok {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(rest, "json")
		}
		text = rest
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}

// balancedEnd returns the index just past the brace closing the one at start.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
