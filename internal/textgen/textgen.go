// Package textgen is the port to the external text-generation service.
// Output is a draft: callers never treat it as a source of facts.
package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is one generation call. System carries the standing instruction,
// Prompt the material to work from.
type Request struct {
	System string
	Prompt string
	// JSON asks for a JSON document instead of prose.
	JSON bool
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// NoInvention is prepended to every system instruction the engine sends.
const NoInvention = "Use only facts stated in the provided material. " +
	"Do not invent names, dates, amounts or commitments. " +
	"If the material does not support an item, leave it out."

// DecodeJSON parses a generated JSON document into out, tolerating a
// surrounding markdown code fence.
func DecodeJSON(text string, out any) error {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), out); err != nil {
		return fmt.Errorf("decode generated JSON: %w", err)
	}
	return nil
}
