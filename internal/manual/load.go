package manual

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"helperbot/internal/domain"
)

// Expand resolves glob patterns into file paths. Patterns without
// metacharacters are returned as is so a missing file surfaces on open.
func Expand(patterns []string) ([]string, error) {
	var paths []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad manual pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			paths = append(paths, p)
			continue
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

// LoadFiles parses every manual matched by patterns concurrently and merges
// the results in argument order.
func LoadFiles(ctx context.Context, patterns []string) ([]domain.Document, error) {
	paths, err := Expand(patterns)
	if err != nil {
		return nil, err
	}

	sets := make([][]domain.Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := loadFile(path)
			if err != nil {
				return err
			}
			sets[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(sets...), nil
}

func loadFile(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manual: %w", err)
	}
	defer f.Close()

	docs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}
