package retrieval

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"helperbot/internal/domain"
)

// Tool exposes the gate's lookup as a langchaingo tool. The input is the
// JSON argument object of a function call (or a bare query) and the output
// is the JSON id -> text mapping of the matches.
type Tool struct {
	gate *Gate
}

var _ tools.Tool = (*Tool)(nil)

func NewTool(g *Gate) *Tool { return &Tool{gate: g} }

func (t *Tool) Name() string { return t.gate.FunctionName() }

func (t *Tool) Description() string { return t.gate.Descriptor().Description }

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	res, err := t.gate.Lookup(ctx, QueryFromArguments(input))
	if err != nil {
		return "{}", err
	}
	return res.JSON(), nil
}

// QueryFromArguments extracts the query argument from raw function-call
// arguments, treating non-JSON input as the query itself.
func QueryFromArguments(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	args, err := domain.DecodeArguments(trimmed)
	if err != nil {
		return trimmed
	}
	call := domain.FunctionCallRequest{Arguments: args}
	if q, ok := call.StringArg("query"); ok {
		return q
	}
	return ""
}
