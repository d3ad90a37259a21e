package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	types "github.com/yungbote/studybuddy-backend/internal/domain"
)

// ShortfallPolicy decides what happens when a quiz is still short after the
// supplemental request.
type ShortfallPolicy int

const (
	// CloneLast pads with copies of the last item, each marked " (variant N)".
	// This repeats questions; FailShort is the stricter choice.
	CloneLast ShortfallPolicy = iota
	// FailShort returns ErrQuizShort instead of padding.
	FailShort
)

func ParseShortfallPolicy(s string) ShortfallPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail", "fail_short", "strict":
		return FailShort
	default:
		return CloneLast
	}
}

var ErrQuizShort = errors.New("model returned fewer questions than requested")

// Supplement asks the model for missing more items. It is called at most once.
type Supplement func(ctx context.Context, missing int) ([]types.QuizItem, error)

type CountReport struct {
	Requested    int `json:"requested"`
	Received     int `json:"received"`
	Supplemented int `json:"supplemented"`
	Cloned       int `json:"cloned"`
	Truncated    int `json:"truncated"`
}

// EnforceCount returns exactly n items, re-indexed 1..n.
func EnforceCount(ctx context.Context, items []types.QuizItem, n int, policy ShortfallPolicy, supplement Supplement) ([]types.QuizItem, CountReport, error) {
	rep := CountReport{Requested: n, Received: len(items)}
	if n <= 0 {
		return []types.QuizItem{}, rep, nil
	}
	out := make([]types.QuizItem, 0, n)
	out = append(out, items...)

	if len(out) < n && supplement != nil {
		extra, err := supplement(ctx, n-len(out))
		if err != nil {
			return nil, rep, err
		}
		if len(extra) > n-len(out) {
			extra = extra[:n-len(out)]
		}
		rep.Supplemented = len(extra)
		out = append(out, extra...)
	}

	if len(out) > n {
		rep.Truncated = len(out) - n
		out = out[:n]
	}

	if len(out) < n {
		if policy == FailShort || len(out) == 0 {
			return nil, rep, fmt.Errorf("%w: got %d of %d", ErrQuizShort, len(out), n)
		}
		last := out[len(out)-1]
		for v := 1; len(out) < n; v++ {
			clone := last
			clone.Options = append([]string(nil), last.Options...)
			clone.Question = fmt.Sprintf("%s (variant %d)", last.Question, v)
			out = append(out, clone)
			rep.Cloned++
		}
	}

	for i := range out {
		out[i].ID = i + 1
	}
	return out, rep, nil
}

// ParseQuizItems recovers question items from model text. The payload may be
// a bare array or an object with a "questions" array. defaultType applies to
// items that carry no recognizable type and no options.
func ParseQuizItems(text string, defaultType string) ([]types.QuizItem, error) {
	raw, err := ExtractJSON(text, AnyShape)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	var list []map[string]any
	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, unparseable(text, err.Error())
		}
		inner, ok := obj["questions"]
		if !ok {
			arr, ok := unwrapArray(raw)
			if !ok {
				return nil, unparseable(text, `object has no "questions" array`)
			}
			inner = arr
		}
		if err := json.Unmarshal(inner, &list); err != nil {
			return nil, unparseable(text, err.Error())
		}
	} else if err := json.Unmarshal(raw, &list); err != nil {
		return nil, unparseable(text, err.Error())
	}

	items := ReshapeItems(list, defaultType)
	if len(items) == 0 {
		return nil, unparseable(text, "no usable questions")
	}
	return items, nil
}

// ValidateQuiz checks the final item list against QuizSchema before it is
// stored or returned.
func ValidateQuiz(items []types.QuizItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return Validate(QuizSchema, raw)
}

// ReshapeItems maps loosely shaped model items onto QuizItem, keeping only
// the fields relevant to each item's type. Items without question text are
// dropped.
func ReshapeItems(list []map[string]any, defaultType string) []types.QuizItem {
	out := make([]types.QuizItem, 0, len(list))
	for _, m := range list {
		q := firstString(m, "question", "q", "prompt", "text")
		if q == "" {
			continue
		}
		options := stringList(m, "options", "choices")
		kind := itemType(firstString(m, "type", "question_type"), len(options) > 0, defaultType)

		item := types.QuizItem{Type: kind, Question: q}
		switch kind {
		case types.ItemMCQ:
			item.Options = options
			item.Answer = resolveAnswer(firstString(m, "answer", "correct_answer", "correct"), options)
		default:
			item.IdealAnswer = firstString(m, "ideal_answer", "answer", "model_answer", "expected_answer")
		}
		out = append(out, item)
	}
	return out
}

func itemType(raw string, hasOptions bool, defaultType string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mcq", "multiple_choice", "multiple choice", "multiple-choice":
		return types.ItemMCQ
	case "descriptive", "open", "short_answer", "short answer":
		return types.ItemDescriptive
	}
	if hasOptions {
		return types.ItemMCQ
	}
	if defaultType == types.ItemMCQ || defaultType == types.ItemDescriptive {
		return defaultType
	}
	return types.ItemDescriptive
}

// resolveAnswer turns a bare option letter ("B", "b)", "Option C") into the
// option text.
func resolveAnswer(ans string, options []string) string {
	a := strings.TrimSpace(ans)
	if a == "" || len(options) == 0 {
		return a
	}
	for _, o := range options {
		if strings.EqualFold(o, a) {
			return o
		}
	}
	letter := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.ToLower(a), "option")))
	letter = strings.TrimRight(letter, ").:")
	if len(letter) == 1 && letter[0] >= 'A' && int(letter[0]-'A') < len(options) {
		return options[letter[0]-'A']
	}
	return a
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return s
				}
			case float64, bool:
				return fmt.Sprint(t)
			}
		}
	}
	return ""
}

func stringList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch t := m[k].(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, v := range t {
				if s := strings.TrimSpace(fmt.Sprint(v)); s != "" && v != nil {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		case map[string]any:
			// {"A": "...", "B": "..."}
			out := make([]string, 0, len(t))
			for c := 'A'; c <= 'Z'; c++ {
				if v, ok := t[string(c)]; ok {
					out = append(out, strings.TrimSpace(fmt.Sprint(v)))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
