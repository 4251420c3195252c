// Package completiontest provides a scripted completion backend for tests.
package completiontest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"helperbot/internal/domain"
)

// Call records one request made to the fake.
type Call struct {
	Turns     []domain.Turn
	Functions []domain.FunctionDescriptor
}

// Prompt returns the content of the last turn of the call.
func (c Call) Prompt() string {
	if len(c.Turns) == 0 {
		return ""
	}
	return c.Turns[len(c.Turns)-1].Content
}

// Fake implements domain.FunctionCompleter. Reply answers plain completions
// and ReplyFunctions answers function-calling ones; both see the call.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	Reply          func(Call) (string, error)
	ReplyFunctions func(Call) (domain.Completion, error)
}

var _ domain.FunctionCompleter = (*Fake)(nil)

func (f *Fake) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	call := f.record(turns, nil)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Reply == nil {
		return "", errors.New("completiontest: no Reply configured")
	}
	return f.Reply(call)
}

func (f *Fake) CompleteWithFunctions(ctx context.Context, turns []domain.Turn, functions []domain.FunctionDescriptor) (domain.Completion, error) {
	call := f.record(turns, functions)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ReplyFunctions == nil {
		return nil, errors.New("completiontest: no ReplyFunctions configured")
	}
	return f.ReplyFunctions(call)
}

// Calls returns every recorded call in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CountPrompts returns how many calls had a last turn containing marker.
func (f *Fake) CountPrompts(marker string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c.Prompt(), marker) {
			n++
		}
	}
	return n
}

func (f *Fake) record(turns []domain.Turn, functions []domain.FunctionDescriptor) Call {
	c := Call{
		Turns:     append([]domain.Turn(nil), turns...),
		Functions: append([]domain.FunctionDescriptor(nil), functions...),
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return c
}

// Rule answers a prompt containing Marker with Reply or Err.
type Rule struct {
	Marker string
	Reply  string
	Err    error
}

// ByMarker answers the first rule whose marker occurs in the prompt.
// Unmatched prompts fail.
func ByMarker(rules ...Rule) func(Call) (string, error) {
	return func(c Call) (string, error) {
		p := c.Prompt()
		for _, r := range rules {
			if strings.Contains(p, r.Marker) {
				return r.Reply, r.Err
			}
		}
		return "", errors.New("completiontest: unexpected prompt: " + p)
	}
}

// Sequence answers calls in order and fails once the replies run out.
func Sequence(replies ...string) func(Call) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(Call) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(replies) {
			return "", errors.New("completiontest: sequence exhausted")
		}
		i++
		return replies[i-1], nil
	}
}
