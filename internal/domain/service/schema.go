package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const analysisSchemaURL = "analysis.schema.json"

// analysisSchema describes the completion shape the prompt asks for. It is
// stricter than RawAnalysis on purpose: violations are only reported.
const analysisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "user_profile": {
      "type": "object",
      "properties": {
        "name":   {"type": "string"},
        "age":    {"type": ["string", "number"]},
        "gender": {"type": "string"}
      }
    },
    "parameters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "status"],
        "properties": {
          "name":        {"type": "string"},
          "value":       {"type": ["string", "number"]},
          "unit":        {"type": "string"},
          "normalRange": {"type": "string"},
          "status":      {"type": "string"},
          "confidence":  {"type": "number", "minimum": 0, "maximum": 1},
          "explanation": {"type": "string"}
        }
      }
    },
    "recommendations": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  },
  "required": ["parameters"]
}`

// AdvisorySchema validates decoded completions and logs violations without
// rejecting them.
type AdvisorySchema struct {
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewAdvisorySchema compiles the embedded analysis schema.
func NewAdvisorySchema(logger *slog.Logger) (*AdvisorySchema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(analysisSchemaURL, strings.NewReader(analysisSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(analysisSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &AdvisorySchema{schema: schema, logger: logger}, nil
}

// Validate returns the schema violation for obj, if any.
func (s *AdvisorySchema) Validate(obj []byte) error {
	var v any
	if err := json.Unmarshal(obj, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("completion does not match schema: %w", err)
	}
	return nil
}

// Check logs a warning when obj violates the schema.
func (s *AdvisorySchema) Check(obj []byte) {
	if err := s.Validate(obj); err != nil && s.logger != nil {
		s.logger.Warn("parser.schema_violation", "error", err)
	}
}
