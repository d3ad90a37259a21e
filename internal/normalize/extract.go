// Package normalize recovers structured payloads from free-form model output.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Shape is the top-level JSON kind a caller expects.
type Shape int

const (
	AnyShape Shape = iota
	ArrayShape
	ObjectShape
)

const previewLimit = 200

// ErrUnparseable is matched by every *UnparseableError.
var ErrUnparseable = errors.New("model response unparseable")

// UnparseableError carries a preview of the text that could not be recovered.
type UnparseableError struct {
	Preview string
	Reason  string
}

func (e *UnparseableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("model response unparseable: %s", e.Reason)
	}
	return "model response unparseable"
}

func (e *UnparseableError) Is(target error) bool { return target == ErrUnparseable }

func unparseable(text, reason string) *UnparseableError {
	return &UnparseableError{Preview: Preview(text), Reason: reason}
}

// Preview returns at most the first 200 runes of s.
func Preview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	r := []rune(s)
	return string(r[:previewLimit]) + "..."
}

// StripCodeFence removes a leading ```lang line and a trailing ``` line.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSON runs the recovery stages in order and returns the first
// payload that parses: fence strip, greedy bracket span, whole string, then
// first "{" to last "}". When shape is ArrayShape and the recovered value is
// an object wrapping exactly one array, the array is returned.
func ExtractJSON(text string, shape Shape) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, unparseable(text, "empty response")
	}
	body := StripCodeFence(text)

	candidates := []string{
		greedySpan(body, shape),
		body,
		span(body, '{', '}'),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		raw, ok := parse(c)
		if !ok {
			continue
		}
		if shape == ArrayShape {
			if arr, ok := unwrapArray(raw); ok {
				return arr, nil
			}
		}
		if matches(raw, shape) {
			return raw, nil
		}
	}
	return nil, unparseable(text, "no JSON payload found")
}

// greedySpan is the first opener to the last matching closer. For AnyShape
// the opener is whichever of "[" and "{" comes first.
func greedySpan(s string, shape Shape) string {
	switch shape {
	case ArrayShape:
		return span(s, '[', ']')
	case ObjectShape:
		return span(s, '{', '}')
	}
	i := strings.IndexAny(s, "[{")
	if i < 0 {
		return ""
	}
	if s[i] == '[' {
		return span(s, '[', ']')
	}
	return span(s, '{', '}')
}

func span(s string, open, close byte) string {
	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, close)
	if i < 0 || j <= i {
		return ""
	}
	return s[i : j+1]
}

func parse(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

func matches(raw json.RawMessage, shape Shape) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return false
	}
	switch shape {
	case ArrayShape:
		return t[0] == '['
	case ObjectShape:
		return t[0] == '{'
	default:
		return t[0] == '[' || t[0] == '{'
	}
}

func unwrapArray(raw json.RawMessage) (json.RawMessage, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return nil, false
	}
	if t[0] == '[' {
		return raw, true
	}
	if t[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(t, &obj); err != nil {
		return nil, false
	}
	var found json.RawMessage
	for _, v := range obj {
		vt := bytes.TrimSpace(v)
		if len(vt) > 0 && vt[0] == '[' {
			if found != nil {
				return nil, false
			}
			found = vt
		}
	}
	return found, found != nil
}

// Decode extracts a payload of the given shape and unmarshals it into out.
func Decode(text string, shape Shape, out any) error {
	raw, err := ExtractJSON(text, shape)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unparseable(text, err.Error())
	}
	return nil
}

// ExtractHTML strips an ```html fence and returns the fragment.
func ExtractHTML(text string) (string, error) {
	html := StripCodeFence(text)
	if html == "" {
		return "", unparseable(text, "empty HTML fragment")
	}
	return html, nil
}
