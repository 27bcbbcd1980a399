package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports that a completion did not contain a usable JSON object.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse completion: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errNoJSONObject   = errors.New("no JSON object detected in completion")
	jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
	codeFenceReplacer = strings.NewReplacer("```json", "", "```", "")
)

// RawAnalysis is the loose shape decoded from an engine completion. Every
// field is optional and scalar fields tolerate any JSON scalar.
type RawAnalysis struct {
	UserProfile     *RawProfile    `json:"user_profile"`
	Parameters      []RawParameter `json:"parameters"`
	Summary         looseString    `json:"summary"`
	Recommendations looseStrings   `json:"recommendations"`
}

type RawProfile struct {
	Name   looseString `json:"name"`
	Age    looseString `json:"age"`
	Gender looseString `json:"gender"`
}

type RawParameter struct {
	Name        looseString `json:"name"`
	Value       looseString `json:"value"`
	Unit        looseString `json:"unit"`
	NormalRange looseString `json:"normalRange"`
	Status      looseString `json:"status"`
	Confidence  looseFloat  `json:"confidence"`
	Explanation looseString `json:"explanation"`
}

// Parser extracts a single JSON object from raw completion text.
type Parser struct {
	schema *AdvisorySchema
}

// NewParser returns a Parser. schema may be nil to skip advisory checks.
func NewParser(schema *AdvisorySchema) *Parser {
	return &Parser{schema: schema}
}

// Parse strips code fences, decodes the completion directly and, failing
// that, decodes the outermost brace span. The object is then mapped onto
// RawAnalysis.
func (p *Parser) Parse(raw string) (RawAnalysis, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return RawAnalysis{}, &ParseError{Raw: raw, Err: err}
	}

	var out RawAnalysis
	if err := json.Unmarshal(obj, &out); err != nil {
		return RawAnalysis{}, &ParseError{Raw: raw, Err: fmt.Errorf("decode analysis: %w", err)}
	}

	if p.schema != nil {
		p.schema.Check(obj)
	}
	return out, nil
}

// extractJSONObject returns the bytes of the JSON object found in text.
func extractJSONObject(text string) ([]byte, error) {
	text = strings.TrimSpace(codeFenceReplacer.Replace(text))

	if obj, ok := decodeObject([]byte(text)); ok {
		return obj, nil
	}

	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return nil, errNoJSONObject
	}
	obj, ok := decodeObject([]byte(match))
	if !ok {
		return nil, fmt.Errorf("outermost brace span is not valid JSON")
	}
	return obj, nil
}

// decodeObject reports whether b is a single JSON object.
func decodeObject(b []byte) ([]byte, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil || probe == nil {
		return nil, false
	}
	return b, true
}

// looseString accepts strings, numbers, booleans and null.
type looseString struct {
	Value string
	Set   bool
}

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = looseString{}
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString{Value: v, Set: true}
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*s = looseString{Value: string(b), Set: true}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected scalar, got %s", b)
		}
		*s = looseString{Value: n.String(), Set: true}
	}
	return nil
}

// String returns the value or def when unset or blank.
func (s looseString) String(def string) string {
	if !s.Set || strings.TrimSpace(s.Value) == "" {
		return def
	}
	return s.Value
}

// looseStrings accepts an array of scalars, a single scalar or null.
type looseStrings []string

func (l *looseStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] != '[' {
		var one looseString
		if err := one.UnmarshalJSON(b); err != nil {
			return err
		}
		*l = looseStrings{one.Value}
		return nil
	}
	var items []looseString
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(looseStrings, 0, len(items))
	for _, it := range items {
		if it.Set && strings.TrimSpace(it.Value) != "" {
			out = append(out, it.Value)
		}
	}
	*l = out
	return nil
}

// looseFloat accepts numbers and numeric strings. Anything else is treated as
// absent.
type looseFloat struct {
	Value float64
	Set   bool
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v float64
	switch {
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = looseFloat{}
			return nil
		}
		v = parsed
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
	case bytes.Equal(b, []byte("null")), bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*f = looseFloat{}
		return nil
	default:
		return fmt.Errorf("expected number, got %s", b)
	}
	*f = looseFloat{Value: v, Set: true}
	return nil
}
