package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"helperbot/internal/completion/completiontest"
	"helperbot/internal/domain"
	"helperbot/internal/prompt"
)

type stubStore struct {
	result  domain.RetrievalResult
	err     error
	queries []string
	ks      []int
}

func (s *stubStore) Index(context.Context, []domain.Document) error { return nil }
func (s *stubStore) Query(_ context.Context, text string, k int) (domain.RetrievalResult, error) {
	s.queries = append(s.queries, text)
	s.ks = append(s.ks, k)
	return s.result, s.err
}
func (s *stubStore) Count() int   { return len(s.result) }
func (s *stubStore) Close() error { return nil }

const (
	checkMarker    = "Reply with a single character"
	compressMarker = "Summarise only the parts"
)

var syncResult = domain.RetrievalResult{{ID: "sync", Text: "Open settings and tap Sync", Score: 0.8}}

func newGate(store domain.DocumentStore, fake *completiontest.Fake, cache bool) *Gate {
	return NewGate(store, fake, prompt.Default(), Config{CacheVerdicts: cache}, zap.NewNop())
}

func TestRetrieveRelevant(t *testing.T) {
	store := &stubStore{result: syncResult}
	fake := &completiontest.Fake{Reply: completiontest.ByMarker(
		completiontest.Rule{Marker: checkMarker, Reply: "Y"},
		completiontest.Rule{Marker: compressMarker, Reply: " Open settings, tap Sync. "},
	)}
	g := newGate(store, fake, false)

	text, err := g.Retrieve(context.Background(), "How do I enable sync?")
	require.NoError(t, err)
	assert.Equal(t, "Open settings, tap Sync.", text)
	assert.Equal(t, []int{DefaultNResults}, store.ks)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Prompt(), `{"sync":"Open settings and tap Sync"}`)
	assert.Contains(t, calls[0].Prompt(), "How do I enable sync?")
}

func TestRetrieveNotRelevant(t *testing.T) {
	fake := &completiontest.Fake{Reply: completiontest.ByMarker(
		completiontest.Rule{Marker: checkMarker, Reply: "N"},
	)}
	g := newGate(&stubStore{result: syncResult}, fake, false)

	text, err := g.Retrieve(context.Background(), "What is the weather?")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, fake.CountPrompts(compressMarker))
}

func TestZeroResultsAreNotRelevant(t *testing.T) {
	fake := &completiontest.Fake{}
	g := newGate(&stubStore{}, fake, false)

	ok, err := g.Relevant(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	text, err := g.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, fake.Calls(), "no completion call for an empty result")
}

func TestStoreFailureIsReported(t *testing.T) {
	fake := &completiontest.Fake{}
	g := newGate(&stubStore{err: fmt.Errorf("%w: down", domain.ErrStoreUnavailable)}, fake, false)

	text, err := g.Retrieve(context.Background(), "sync")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, text)
	assert.Empty(t, fake.Calls())
}

func TestCompletionFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	fake := &completiontest.Fake{Reply: func(completiontest.Call) (string, error) { return "", boom }}
	g := newGate(&stubStore{result: syncResult}, fake, false)

	_, err := g.Retrieve(context.Background(), "sync")
	assert.ErrorIs(t, err, boom)
}

func TestVerdictCache(t *testing.T) {
	fake := &completiontest.Fake{Reply: completiontest.ByMarker(
		completiontest.Rule{Marker: checkMarker, Reply: "yes"},
		completiontest.Rule{Marker: compressMarker, Reply: "tap Sync"},
	)}
	g := newGate(&stubStore{result: syncResult}, fake, true)

	for i := 0; i < 3; i++ {
		text, err := g.Retrieve(context.Background(), "sync?")
		require.NoError(t, err)
		assert.Equal(t, "tap Sync", text)
	}
	assert.Equal(t, 1, fake.CountPrompts(checkMarker))
	assert.Equal(t, 1, fake.CountPrompts(compressMarker))

	_, err := g.Retrieve(context.Background(), "different question")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.CountPrompts(checkMarker))
}

func TestParseVerdict(t *testing.T) {
	for in, want := range map[string]bool{
		"Y": true, "y": true, " YES\n": true, `"Y"`: true, "Y.": true,
		"N": false, "no": false, "": false, "Yes, the results mention sync": false,
	} {
		assert.Equal(t, want, ParseVerdict(in), "%q", in)
	}
}

func TestDescriptor(t *testing.T) {
	g := NewGate(&stubStore{}, &completiontest.Fake{}, prompt.Default(), Config{FunctionName: "lookup_manual"}, zap.NewNop())
	d := g.Descriptor()
	assert.Equal(t, "lookup_manual", d.Name)
	assert.Equal(t, []string{"query"}, d.Parameters["required"])
}
