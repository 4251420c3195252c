// Package retrieval decides whether manual sections support an answer and
// condenses the useful ones into supporting text.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"helperbot/internal/domain"
	"helperbot/internal/prompt"
)

const (
	DefaultNResults     = 3
	DefaultFunctionName = "get_data_from_db"
)

// Config tunes the gate.
type Config struct {
	NResults     int
	FunctionName string
	// CacheVerdicts reuses relevance and compression answers for an
	// identical message and result set within one session.
	CacheVerdicts bool
}

// Gate runs lookup, relevance check and compression for one turn.
type Gate struct {
	store     domain.DocumentStore
	completer domain.Completer
	prompts   *prompt.Set
	cfg       Config
	logger    *zap.Logger

	mu         sync.Mutex
	relevance  map[string]bool
	compressed map[string]string
}

func NewGate(store domain.DocumentStore, completer domain.Completer, prompts *prompt.Set, cfg Config, logger *zap.Logger) *Gate {
	if cfg.NResults <= 0 {
		cfg.NResults = DefaultNResults
	}
	if cfg.FunctionName == "" {
		cfg.FunctionName = DefaultFunctionName
	}
	g := &Gate{store: store, completer: completer, prompts: prompts, cfg: cfg, logger: logger}
	if cfg.CacheVerdicts {
		g.relevance = make(map[string]bool)
		g.compressed = make(map[string]string)
	}
	return g
}

// FunctionName is the identifier under which the lookup is offered.
func (g *Gate) FunctionName() string { return g.cfg.FunctionName }

// Descriptor describes the lookup as a callable function.
func (g *Gate) Descriptor() domain.FunctionDescriptor {
	return domain.FunctionDescriptor{
		Name:        g.cfg.FunctionName,
		Description: "Look up sections of the product manual that answer a customer question",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The customer question or search phrase",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Lookup queries the document store for the top matches.
func (g *Gate) Lookup(ctx context.Context, query string) (domain.RetrievalResult, error) {
	res, err := g.store.Query(ctx, query, g.cfg.NResults)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	g.logger.Debug("manual lookup", zap.String("query", query), zap.Int("results", len(res)))
	return res, nil
}

// Relevant asks whether result helps answer userMessage. An empty result is
// never relevant and costs no completion call.
func (g *Gate) Relevant(ctx context.Context, userMessage string, result domain.RetrievalResult) (bool, error) {
	if result.Empty() {
		return false, nil
	}
	key := cacheKey(userMessage, result)
	if v, ok := g.cachedRelevance(key); ok {
		return v, nil
	}

	out, err := g.ask(ctx, prompt.QueryResultCheck, userMessage, result)
	if err != nil {
		return false, err
	}
	ok := ParseVerdict(out)
	g.logger.Debug("relevance verdict", zap.String("raw", out), zap.Bool("relevant", ok))

	if g.relevance != nil {
		g.mu.Lock()
		g.relevance[key] = ok
		g.mu.Unlock()
	}
	return ok, nil
}

// Compress condenses result into the supporting text for userMessage.
func (g *Gate) Compress(ctx context.Context, userMessage string, result domain.RetrievalResult) (string, error) {
	key := cacheKey(userMessage, result)
	if g.compressed != nil {
		g.mu.Lock()
		v, ok := g.compressed[key]
		g.mu.Unlock()
		if ok {
			return v, nil
		}
	}

	out, err := g.ask(ctx, prompt.QueryResultCompression, userMessage, result)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)

	if g.compressed != nil {
		g.mu.Lock()
		g.compressed[key] = out
		g.mu.Unlock()
	}
	return out, nil
}

// Retrieve runs the full gate for userMessage and returns the supporting
// text, empty when nothing relevant was found. A document store failure is
// returned with an empty string so the caller can answer without documents.
func (g *Gate) Retrieve(ctx context.Context, userMessage string) (string, error) {
	res, err := g.Lookup(ctx, userMessage)
	if err != nil {
		return "", err
	}
	ok, err := g.Relevant(ctx, userMessage, res)
	if err != nil || !ok {
		return "", err
	}
	return g.Compress(ctx, userMessage, res)
}

func (g *Gate) ask(ctx context.Context, name prompt.Name, userMessage string, result domain.RetrievalResult) (string, error) {
	text, err := g.prompts.Render(name, prompt.Vars{
		prompt.VarUserMessage:  userMessage,
		prompt.VarQueryResults: result.JSON(),
	})
	if err != nil {
		return "", err
	}
	return g.completer.Complete(ctx, []domain.Turn{domain.NewTurn(domain.RoleUser, text)})
}

func (g *Gate) cachedRelevance(key string) (bool, bool) {
	if g.relevance == nil {
		return false, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.relevance[key]
	return v, ok
}

func cacheKey(userMessage string, result domain.RetrievalResult) string {
	return userMessage + "\x00" + result.JSON()
}

// ParseVerdict reads a Y/N relevance answer. Case, surrounding whitespace,
// quotes and trailing punctuation are ignored; anything but Y or YES is N.
func ParseVerdict(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`.!")
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES":
		return true
	}
	return false
}
