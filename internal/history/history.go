// Package history keeps the conversation log: the full durable record of
// every turn plus the bounded window sent to the model as context.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"helperbot/internal/domain"
)

const idLayout = "20060102_150405"

// NewConversationID returns the id of a conversation started at now.
func NewConversationID(now time.Time) string {
	return now.Format(idLayout)
}

// History is the single-writer log of one conversation.
type History struct {
	mu     sync.RWMutex
	store  domain.LogStore
	id     string
	window *Window
	log    []domain.Turn
	logger *zap.Logger
}

// New creates an empty history for conversationID backed by store.
func New(store domain.LogStore, conversationID string, maxHistory int, logger *zap.Logger) *History {
	return &History{
		store:  store,
		id:     conversationID,
		window: NewWindow(maxHistory),
		logger: logger.With(zap.String("conversation_id", conversationID)),
	}
}

func (h *History) ConversationID() string { return h.id }

// Load replaces the in-memory state with the persisted turns. When the store
// cannot be read the history is left empty and ErrPersistenceUnavailable is
// returned; callers may continue with the empty history.
func (h *History) Load(ctx context.Context) error {
	turns, err := h.store.Load(ctx, h.id)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = nil
	h.window.Reset()
	if err != nil {
		h.logger.Warn("conversation log unavailable, starting empty", zap.Error(err))
		return fmt.Errorf("%w: load: %w", domain.ErrPersistenceUnavailable, err)
	}
	h.log = append(h.log, turns...)
	h.window.Push(turns...)
	h.logger.Debug("conversation restored", zap.Int("turns", len(turns)))
	return nil
}

// Append records turns as one batch. The in-memory log and window always
// take the turns; a failed durable write is returned wrapped in
// ErrPersistenceUnavailable.
func (h *History) Append(ctx context.Context, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	h.mu.Lock()
	h.log = append(h.log, turns...)
	h.window.Push(turns...)
	h.mu.Unlock()

	if err := h.store.Append(ctx, h.id, turns...); err != nil {
		h.logger.Warn("conversation log write failed", zap.Int("turns", len(turns)), zap.Error(err))
		return fmt.Errorf("%w: append: %w", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Window returns the bounded context window, oldest first.
func (h *History) Window() []domain.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.window.Turns()
}

// Log returns every turn recorded in this process, oldest first.
func (h *History) Log() []domain.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domain.Turn(nil), h.log...)
}

func (h *History) MaxHistory() int { return h.window.Cap() }
