package ai

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/chibi-hub/chibi-engine/internal/domain/shared"
)

// judgmentSchemaName identifies the judge response schema.
const judgmentSchemaName = "answer-judgment"

// judgmentSchema is the strict schema every judge response must satisfy
// before it is trusted.
var judgmentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"quality": map[string]any{
			"type":        "number",
			"minimum":     0,
			"maximum":     5,
			"description": "Answer quality score from 0 (no answer) to 5 (excellent)",
		},
		"correct": map[string]any{
			"type":        "boolean",
			"description": "Whether the answer is factually correct",
		},
		"feedback": map[string]any{
			"type":        "string",
			"description": "One or two sentences of feedback for the student",
		},
	},
	"required":             []any{"quality", "correct", "feedback"},
	"additionalProperties": false,
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// parseJudgment validates raw model output against the judgment schema and
// decodes it. Any violation becomes ErrJudgeMalformed; malformed data never
// leaves this function.
func parseJudgment(raw []byte) (*Judgment, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, shared.WrapError("ai", "Judge", shared.ErrMalformedResponse, "judge returned invalid JSON", err)
	}

	compiled, err := compiledSchema(judgmentSchemaName, judgmentSchema)
	if err != nil {
		return nil, shared.WrapError("ai", "Judge", shared.ErrUpstreamService, "compile judgment schema", err)
	}

	if err := compiled.Validate(parsed); err != nil {
		return nil, shared.WrapError("ai", "Judge", shared.ErrMalformedResponse, "judge response failed schema validation", err)
	}

	var j struct {
		Quality  float64 `json:"quality"`
		Correct  bool    `json:"correct"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, shared.WrapError("ai", "Judge", shared.ErrMalformedResponse, "decode judgment", err)
	}

	return &Judgment{
		Quality:  j.Quality,
		Correct:  j.Correct,
		Feedback: j.Feedback,
	}, nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(name string, definition map[string]any) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value, not raw bytes.
	defBytes, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
