// Package jsonl stores each conversation as a JSON-lines file, one turn per line.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"helperbot/internal/domain"
)

// Store writes <dir>/<conversation id>.jsonl files.
type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

var _ domain.LogStore = (*Store)(nil)

// New creates the directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return "", fmt.Errorf("invalid conversation id %q", id)
	}
	return filepath.Join(s.dir, id+".jsonl"), nil
}

// record is one line on disk. Lines written by one Append share Batch and
// the last of them carries Commit. Lines without a batch id stand alone.
type record struct {
	domain.Turn
	Batch  string `json:"batch,omitempty"`
	Commit bool   `json:"commit,omitempty"`
}

// Append encodes turns and writes them with a single write call. A torn
// line left by an earlier crash is terminated first so it cannot swallow
// the new records.
func (s *Store) Append(_ context.Context, id string, turns ...domain.Turn) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}
	batch := uuid.NewString()
	var buf bytes.Buffer
	for i, t := range turns {
		line, err := json.Marshal(record{Turn: t, Batch: batch, Commit: i == len(turns)-1})
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return err
	}
	defer f.Close()

	torn, err := endsTorn(path)
	if err != nil {
		return err
	}
	data := buf.Bytes()
	if torn {
		data = append([]byte{'\n'}, data...)
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func endsTorn(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || st.Size() == 0 {
		return false, err
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// Load replays the conversation. Lines that do not decode (partial writes)
// are skipped, and so is every batch that never reached its commit line.
func (s *Store) Load(_ context.Context, id string) ([]domain.Turn, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f, s.logger.With(zap.String("conversation_id", id)))
}

func decode(r io.Reader, logger *zap.Logger) ([]domain.Turn, error) {
	var (
		turns   []domain.Turn
		pending []domain.Turn
		batch   string
	)
	drop := func(line int) {
		if len(pending) > 0 {
			logger.Warn("dropping uncommitted history batch", zap.Int("line", line), zap.Int("turns", len(pending)))
		}
		pending, batch = nil, ""
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(line, &rec); err != nil || !rec.Role.Valid() {
			logger.Warn("skipping unreadable history line", zap.Int("line", n))
			drop(n)
			continue
		}
		if rec.Batch == "" {
			drop(n)
			turns = append(turns, rec.Turn)
			continue
		}
		if rec.Batch != batch {
			drop(n)
			batch = rec.Batch
		}
		pending = append(pending, rec.Turn)
		if rec.Commit {
			turns = append(turns, pending...)
			pending, batch = nil, ""
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	drop(n)
	return turns, nil
}

// Conversations lists the stored conversation ids in name order, which is
// chronological for timestamp ids.
func (s *Store) Conversations(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, ".jsonl") {
			ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
		}
	}
	return ids, nil
}

func (s *Store) Close() error { return nil }
