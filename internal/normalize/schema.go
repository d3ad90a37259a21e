package normalize

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names a JSON Schema document used to gate model payloads before
// they are persisted.
type Schema struct {
	Name       string
	Definition map[string]any
}

var (
	RoadmapSchema = Schema{
		Name: "roadmap",
		Definition: map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"title"},
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "minLength": 1},
					"description": map[string]any{"type": "string"},
				},
			},
		},
	}

	DetailsSchema = Schema{
		Name: "details",
		Definition: map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"section_title", "section_items"},
				"properties": map[string]any{
					"section_title": map[string]any{"type": "string"},
					"section_items": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"term", "definition"},
						},
					},
				},
			},
		},
	}

	// QuizSchema gates reshaped quiz items. MCQ items need at least two
	// options and an answer.
	QuizSchema = Schema{
		Name: "quiz",
		Definition: map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"type", "question"},
				"properties": map[string]any{
					"id":           map[string]any{"type": "integer", "minimum": 0},
					"type":         map[string]any{"enum": []any{"mcq", "descriptive"}},
					"question":     map[string]any{"type": "string", "minLength": 1},
					"options":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"answer":       map[string]any{"type": "string"},
					"ideal_answer": map[string]any{"type": "string"},
				},
				"if": map[string]any{
					"properties": map[string]any{"type": map[string]any{"const": "mcq"}},
				},
				"then": map[string]any{
					"required": []any{"options", "answer"},
					"properties": map[string]any{
						"options": map[string]any{"minItems": 2},
						"answer":  map[string]any{"minLength": 1},
					},
				},
			},
		},
	}

	GradingSchema = Schema{
		Name: "grading",
		Definition: map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"score"},
				"properties": map[string]any{
					"score":    map[string]any{"type": "number"},
					"feedback": map[string]any{"type": "string"},
				},
			},
		},
	}
)

var schemaCache sync.Map // map[string]*jsonschema.Schema

// Validate checks raw against schema. Failures are reported as
// *UnparseableError so callers treat them like any other malformed output.
func Validate(schema Schema, raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return unparseable(string(raw), fmt.Sprintf("invalid JSON: %v", err))
	}
	compiled, err := compiled(schema)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return unparseable(string(raw), fmt.Sprintf("%s schema: %v", schema.Name, err))
	}
	return nil
}

func compiled(schema Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}
	// The compiler wants a plain decoded value, not Go maps with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, err
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, err
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(schema.Name, s)
	return s, nil
}

// DecodeValidated extracts, validates and unmarshals a model payload.
func DecodeValidated(text string, shape Shape, schema Schema, out any) error {
	raw, err := ExtractJSON(text, shape)
	if err != nil {
		return err
	}
	if err := Validate(schema, raw); err != nil {
		if u, ok := err.(*UnparseableError); ok {
			u.Preview = Preview(text)
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unparseable(text, err.Error())
	}
	return nil
}
