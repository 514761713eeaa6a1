// Package payload turns a filled template into a request body.
//
// DESIGN: Parse never fails. It tries, in order, stopping at the first success:
//  1. Strict:   strip BOM + surrounding whitespace, validate as a JSON object
//  2. Repaired: run the Passes sequence (repair.go), validate again
//  3. Fallback: {"model": ..., "messages": ...} built from known values
//
// The outcome records which stage produced the body so callers can report a
// fallback as a warning without failing the exchange.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Stage identifies which step produced the body.
type Stage string

const (
	StageStrict   Stage = "strict"
	StageRepaired Stage = "repaired"
	StageFallback Stage = "fallback"
)

const bom = "\ufeff"

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNotObject   = errors.New("top-level value is not an object")
)

// Fallback holds the values used to synthesize a body when parsing fails.
type Fallback struct {
	Model    string
	Messages any
}

// Result is the outcome of Parse.
type Result struct {
	Body  []byte // JSON object; always set
	Stage Stage
	Err   error // why strict and repaired parsing failed; only set for StageFallback
}

// Fallback reports whether the body was synthesized.
func (r Result) Fallback() bool { return r.Stage == StageFallback }

// Parse produces a JSON object body from filled.
func Parse(filled string, fb Fallback) Result {
	s := strings.TrimSpace(strings.TrimPrefix(filled, bom))

	strictErr := validateObject(s)
	if strictErr == nil {
		return Result{Body: []byte(s), Stage: StageStrict}
	}

	repaired := Repair(s)
	repairErr := validateObject(repaired)
	if repairErr == nil {
		return Result{Body: []byte(repaired), Stage: StageRepaired}
	}

	body, err := buildFallback(fb)
	if err != nil {
		// Messages could not be encoded; an empty list keeps the body valid.
		body, _ = json.Marshal(fallbackBody{Model: fb.Model, Messages: []any{}})
	}
	return Result{
		Body:  body,
		Stage: StageFallback,
		Err:   fmt.Errorf("strict parse: %w; repaired parse: %w", strictErr, repairErr),
	}
}

// Decode unmarshals a body produced by Parse into a generic object.
func Decode(body []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return obj, nil
}

type fallbackBody struct {
	Model    string `json:"model"`
	Messages any    `json:"messages"`
}

func buildFallback(fb Fallback) ([]byte, error) {
	messages := fb.Messages
	if messages == nil {
		messages = []any{}
	}
	return json.Marshal(fallbackBody{Model: fb.Model, Messages: messages})
}

func validateObject(s string) error {
	if !gjson.Valid(s) {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return fmt.Errorf("%w: %v", errInvalidJSON, err)
		}
		return errInvalidJSON
	}
	if !gjson.Parse(s).IsObject() {
		return errNotObject
	}
	return nil
}
