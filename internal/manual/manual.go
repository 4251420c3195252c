// Package manual reads the key/value manual files the assistant answers from.
//
// A manual is plain text: a line starting with '#' opens a section whose key
// is the line with every '#' removed, and the following non-blank lines form
// the section body.
package manual

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"helperbot/internal/domain"
)

const datasetPrefix = "project_data_"

// Parse reads one manual. Blank lines and lines before the first key are
// ignored, keys without body lines produce no document, and a repeated key
// with a body replaces the earlier body while keeping its original position.
func Parse(r io.Reader) ([]domain.Document, error) {
	var (
		order  []string
		bodies = make(map[string][]string)
		key    string
		inKey  bool
		fresh  bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			key = strings.TrimSpace(strings.ReplaceAll(line, "#", ""))
			inKey, fresh = true, true
			if _, seen := bodies[key]; !seen {
				order = append(order, key)
				bodies[key] = nil
			}
			continue
		}
		if !inKey {
			continue
		}
		// a repeated key only replaces the earlier body once it has one of its own
		if fresh {
			bodies[key], fresh = nil, false
		}
		bodies[key] = append(bodies[key], line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manual: %w", err)
	}

	docs := make([]domain.Document, 0, len(order))
	for _, k := range order {
		if len(bodies[k]) == 0 {
			continue
		}
		docs = append(docs, domain.Document{ID: k, Text: strings.Join(bodies[k], "\n")})
	}
	return docs, nil
}

// Merge combines document sets in order; later ids replace earlier ones in place.
func Merge(sets ...[]domain.Document) []domain.Document {
	var out []domain.Document
	pos := make(map[string]int)
	for _, set := range sets {
		for _, d := range set {
			if i, ok := pos[d.ID]; ok {
				out[i] = d
				continue
			}
			pos[d.ID] = len(out)
			out = append(out, d)
		}
	}
	return out
}

// ResolveDataset returns the path of the named dataset file inside dir.
func ResolveDataset(dir, name string) string {
	return filepath.Join(dir, datasetPrefix+name+".txt")
}

// Texts returns the bodies of docs, in order.
func Texts(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}
