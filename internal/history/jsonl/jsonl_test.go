package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"helperbot/internal/domain"
)

func TestTornTrailingLineIsSkipped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "c1", domain.NewTurn(domain.RoleUser, "hi"), domain.NewTurn(domain.RoleAssistant, "hello")))

	f, err := os.OpenFile(filepath.Join(dir, "c1.jsonl"), os.O_APPEND|os.O_WRONLY, 0o640)
	require.NoError(t, err)
	_, err = f.WriteString(`{"role":"user","content":"half`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	turns, err := s.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, turns, 2)

	require.NoError(t, s.Append(ctx, "c1", domain.NewTurn(domain.RoleUser, "again")))
	turns, err = s.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "again", turns[2].Content)
}

func TestRejectsPathLikeIDs(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	for _, id := range []string{"", "..", "../x", "a/b"} {
		assert.Error(t, s.Append(context.Background(), id, domain.NewTurn(domain.RoleUser, "x")), id)
	}
}

func TestConversationsListsIDs(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "20240102_000000", domain.NewTurn(domain.RoleUser, "b")))
	require.NoError(t, s.Append(ctx, "20240101_000000", domain.NewTurn(domain.RoleUser, "a")))

	ids, err := s.Conversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101_000000", "20240102_000000"}, ids)
}

func appendRaw(t *testing.T, dir, id, raw string) {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(dir, id+".jsonl"), os.O_APPEND|os.O_WRONLY, 0o640)
	require.NoError(t, err)
	_, err = f.WriteString(raw)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestTornReplyDropsWholeBatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "c", domain.NewTurn(domain.RoleUser, "q1"), domain.NewTurn(domain.RoleAssistant, "a1")))
	appendRaw(t, dir, "c", `{"role":"user","content":"q2","batch":"b2"}`+"\n"+`{"role":"assistant","cont`)

	turns, err := s.Load(ctx, "c")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	assert.Equal(t, "a1", turns[1].Content)

	require.NoError(t, s.Append(ctx, "c", domain.NewTurn(domain.RoleUser, "q3"), domain.NewTurn(domain.RoleAssistant, "a3")))
	turns, err = s.Load(ctx, "c")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, []string{"q1", "a1", "q3", "a3"}, contents(turns))
}

func TestUncommittedBatchBeforeNextAppendIsDropped(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "c", domain.NewTurn(domain.RoleUser, "q1"), domain.NewTurn(domain.RoleAssistant, "a1")))
	appendRaw(t, dir, "c", `{"role":"user","content":"q2","batch":"b2"}`+"\n")
	require.NoError(t, s.Append(ctx, "c", domain.NewTurn(domain.RoleUser, "q3"), domain.NewTurn(domain.RoleAssistant, "a3")))

	turns, err := s.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "a1", "q3", "a3"}, contents(turns))
}

func TestLinesWithoutBatchStandAlone(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.jsonl"),
		[]byte(`{"role":"user","content":"hi"}`+"\n"+`{"role":"assistant","content":"hello"}`+"\n"), 0o640))

	turns, err := s.Load(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "hello"}, contents(turns))
}

func contents(turns []domain.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}
