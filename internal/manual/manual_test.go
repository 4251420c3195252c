package manual

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"helperbot/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []domain.Document
	}{
		{
			name:  "two sections",
			input: "#A\nfoo\n#B\nbar\nbaz",
			want:  []domain.Document{{ID: "A", Text: "foo"}, {ID: "B", Text: "bar\nbaz"}},
		},
		{
			name:  "blank lines and preamble ignored",
			input: "intro line\n\n#sync\n\nOpen settings\n\nTap sync\n",
			want:  []domain.Document{{ID: "sync", Text: "Open settings\nTap sync"}},
		},
		{
			name:  "all hashes removed from key",
			input: "## login ##\nUse your email\n",
			want:  []domain.Document{{ID: "login", Text: "Use your email"}},
		},
		{
			name:  "duplicate key overwrites",
			input: "#A\nold\n#B\nb\n#A\nnew\n",
			want:  []domain.Document{{ID: "A", Text: "new"}, {ID: "B", Text: "b"}},
		},
		{
			name:  "empty repeated key keeps earlier body",
			input: "#A\nfoo\n#B\nbar\n#A\n",
			want:  []domain.Document{{ID: "A", Text: "foo"}, {ID: "B", Text: "bar"}},
		},
		{
			name:  "empty section dropped",
			input: "#A\n#B\nbody\r\n",
			want:  []domain.Document{{ID: "B", Text: "body"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  []domain.Document{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataset(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "project_data_helper.txt"), ResolveDataset("data", "helper"))
}

func TestLoadFilesMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(first, []byte("#sync\nold\n#login\nemail\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("#sync\nnew\n#reset\nhold power\n"), 0o644))

	docs, err := LoadFiles(context.Background(), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{
		{ID: "sync", Text: "new"},
		{ID: "login", Text: "email"},
		{ID: "reset", Text: "hold power"},
	}, docs)
}

func TestLoadFilesGlobAndMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project_data_x.txt"), []byte("#k\nv\n"), 0o644))

	docs, err := LoadFiles(context.Background(), []string{filepath.Join(dir, "project_data_*.txt")})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = LoadFiles(context.Background(), []string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.txt")
	require.NoError(t, os.WriteFile(path, []byte("#A\nfoo\n"), 0o644))

	w, err := NewWatcher([]string{path}, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []domain.Document, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, docs []domain.Document) error {
			got <- docs
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(path, []byte("#A\nbar\n"), 0o644))

	select {
	case docs := <-got:
		assert.Equal(t, []domain.Document{{ID: "A", Text: "bar"}}, docs)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
	cancel()
	<-done
}
