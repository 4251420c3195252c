package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"helperbot/internal/domain"
	"helperbot/internal/manual"
)

// Summarizer condenses the manual into a short overview.
type Summarizer interface {
	SummarizeManual(docs []domain.Document, maxSentences int) string
}

// Summary describes the manual currently served by the document store.
type Summary struct {
	Documents int
	Sections  []string
	Overview  string
}

// String renders the summary as a single header line.
func (s Summary) String() string {
	if s.Documents == 0 {
		return "No manual sections loaded."
	}
	return fmt.Sprintf("%d sections (%s). %s", s.Documents, strings.Join(s.Sections, ", "), s.Overview)
}

// Ingestor loads manual files into a document store.
type Ingestor struct {
	store        domain.DocumentStore
	summarizer   Summarizer
	maxSentences int
	logger       *zap.Logger

	mu   sync.RWMutex
	last Summary
}

func NewIngestor(store domain.DocumentStore, summarizer Summarizer, maxSentences int, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: store, summarizer: summarizer, maxSentences: maxSentences, logger: logger}
}

// Ingest parses every manual matched by patterns and replaces the indexed set.
func (s *Ingestor) Ingest(ctx context.Context, patterns []string) (Summary, error) {
	docs, err := manual.LoadFiles(ctx, patterns)
	if err != nil {
		return Summary{}, fmt.Errorf("load manual: %w", err)
	}
	if err := s.Reload(ctx, docs); err != nil {
		return Summary{}, err
	}
	return s.Summary(), nil
}

// Reload indexes already parsed sections. It satisfies manual.ReloadFunc.
func (s *Ingestor) Reload(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		s.logger.Warn("manual has no sections; retrieval will find nothing")
	}
	if err := s.store.Index(ctx, docs); err != nil {
		return fmt.Errorf("index manual: %w", err)
	}

	sum := Summary{Documents: len(docs), Sections: make([]string, len(docs))}
	for i, d := range docs {
		sum.Sections[i] = d.ID
	}
	if s.summarizer != nil && len(docs) > 0 {
		sum.Overview = s.summarizer.SummarizeManual(docs, s.maxSentences)
	}

	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()

	s.logger.Debug("manual summary updated", zap.Int("documents", sum.Documents))
	return nil
}

// Summary returns the summary of the most recent successful ingest.
func (s *Ingestor) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
