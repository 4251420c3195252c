package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentStore indexes manual sections and answers nearest-neighbour queries.
type DocumentStore interface {
	// Index replaces the indexed set with docs.
	Index(ctx context.Context, docs []Document) error
	// Query returns at most k matches ordered by descending similarity.
	// An empty store yields no matches and no error.
	Query(ctx context.Context, text string, k int) (RetrievalResult, error)
	Count() int
	Close() error
}

// Completer is the plain message-completion boundary.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// FunctionCompleter additionally accepts callable function descriptors.
type FunctionCompleter interface {
	Completer
	CompleteWithFunctions(ctx context.Context, turns []Turn, functions []FunctionDescriptor) (Completion, error)
}

// LogStore persists conversation turns. Each turn is one durable record and
// a single Append call commits all of its turns or none of them.
type LogStore interface {
	Append(ctx context.Context, conversationID string, turns ...Turn) error
	// Load returns the persisted turns of a conversation in original order.
	// An unknown conversation yields no turns and no error.
	Load(ctx context.Context, conversationID string) ([]Turn, error)
	Close() error
}
