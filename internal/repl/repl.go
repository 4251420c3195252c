// Package repl is the line-oriented terminal front end.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"helperbot/internal/assistant"
)

// Answerer is the orchestrator surface the REPL drives.
type Answerer interface {
	Answer(ctx context.Context, userMessage string) (assistant.Reply, error)
}

const (
	userPrompt = "user: "
	aiPrefix   = "AI: "
)

// Run reads one message per line from in and writes each answer to out
// until EOF, "quit" or "exit", or ctx is cancelled.
func Run(ctx context.Context, answerer Answerer, in io.Reader, out io.Writer, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isQuit(line) {
			return nil
		}

		reply, err := answerer.Answer(ctx, line)
		if err != nil {
			logger.Warn("turn failed", zap.Error(err))
			fmt.Fprintln(out, aiPrefix+assistant.UserMessage(err))
			continue
		}
		fmt.Fprintln(out, aiPrefix+reply.Text)
		if reply.PersistenceWarning != nil {
			fmt.Fprintln(out, "(warning) "+assistant.PersistenceWarningMessage)
		}
	}
}

func isQuit(s string) bool {
	s = strings.ToLower(s)
	return s == "quit" || s == "exit"
}
