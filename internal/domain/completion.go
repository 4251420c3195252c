package domain

import (
	"encoding/json"
	"fmt"
)

// FunctionDescriptor describes a callable function offered to the completion service.
type FunctionDescriptor struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object describing the arguments.
	Parameters map[string]any
}

// Completion is the result of a function-calling completion: either a
// PlainAnswer or a FunctionCallRequest.
type Completion interface {
	isCompletion()
}

// PlainAnswer is an ordinary assistant message.
type PlainAnswer struct {
	Content string
}

// FunctionCallRequest asks the caller to invoke a named function.
type FunctionCallRequest struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments,omitempty"`
	RawArguments string         `json:"raw_arguments,omitempty"`
}

func (PlainAnswer) isCompletion()         {}
func (FunctionCallRequest) isCompletion() {}

// StringArg returns the named argument when it is a string.
func (c FunctionCallRequest) StringArg(name string) (string, bool) {
	v, ok := c.Arguments[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// DecodeArguments parses raw JSON arguments into a key/value map.
// Empty input decodes to an empty map.
func DecodeArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode function arguments: %w", err)
	}
	return args, nil
}
