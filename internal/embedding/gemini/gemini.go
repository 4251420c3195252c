// Package gemini embeds text with the Gemini embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const defaultModel = "gemini-embedding-001"

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	// TaskType is a Gemini task type such as RETRIEVAL_QUERY.
	TaskType string
}

// Embedder calls Models.EmbedContent for each text.
type Embedder struct {
	client   *genai.Client
	model    string
	taskType string

	mu        sync.Mutex
	dimension int
}

// New creates a Gemini embedder using the key found in cfg.APIKeyEnv.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Embedder{
		client:   client,
		model:    cfg.Model,
		taskType: TaskType(cfg.TaskType),
	}, nil
}

// TaskType normalises a configured task type, defaulting to SEMANTIC_SIMILARITY.
func TaskType(s string) string {
	switch t := strings.ToUpper(strings.TrimSpace(s)); t {
	case "CLASSIFICATION", "CLUSTERING", "RETRIEVAL_DOCUMENT", "RETRIEVAL_QUERY",
		"QUESTION_ANSWERING", "FACT_VERIFICATION", "SEMANTIC_SIMILARITY":
		return t
	default:
		return "SEMANTIC_SIMILARITY"
	}
}

func (e *Embedder) Name() string { return "gemini:" + e.model }

func (e *Embedder) Prepare(context.Context, []string) error { return nil }

func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: e.taskType},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, errors.New("no embedding returned")
	}

	v := result.Embeddings[0].Values
	e.mu.Lock()
	if e.dimension == 0 {
		e.dimension = len(v)
	}
	e.mu.Unlock()
	return v, nil
}
