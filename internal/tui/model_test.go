package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helperbot/internal/assistant"
	"helperbot/internal/domain"
)

type fakeAnswerer struct {
	reply assistant.Reply
	err   error
	asked []string
}

func (f *fakeAnswerer) Answer(_ context.Context, msg string) (assistant.Reply, error) {
	f.asked = append(f.asked, msg)
	return f.reply, f.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

// submit types q, presses enter and feeds the answer back into the model.
func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.pending)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestEnterAsksAndAppendsReply(t *testing.T) {
	fa := &fakeAnswerer{reply: assistant.Reply{Text: "Open settings.", Intent: domain.NewTaxonomy("how_to").Classify("how_to")}}
	m := sized(t, New(context.Background(), fa, "2 sections", nil))

	m = submit(t, m, "how do I sync")

	assert.Equal(t, []string{"how do I sync"}, fa.asked)
	assert.False(t, m.pending)
	require.Len(t, m.transcript, 2)
	assert.Equal(t, domain.RoleUser, m.transcript[0].role)
	assert.Equal(t, "Open settings.", m.transcript[1].text)
	assert.Equal(t, "Intent: how_to", m.status)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), "Open settings.")
}

func TestErrorShowsUserMessage(t *testing.T) {
	fa := &fakeAnswerer{err: domain.ErrCompletionUnavailable}
	m := sized(t, New(context.Background(), fa, "", nil))

	m = submit(t, m, "hello")

	require.Len(t, m.transcript, 2)
	assert.Equal(t, assistant.UnavailableMessage, m.transcript[1].text)
	assert.Contains(t, m.status, "Error")
}

func TestPersistenceWarningInStatus(t *testing.T) {
	fa := &fakeAnswerer{reply: assistant.Reply{Text: "hi", PersistenceWarning: errors.New("disk full")}}
	m := sized(t, New(context.Background(), fa, "", nil))

	m = submit(t, m, "hello")
	assert.Equal(t, assistant.PersistenceWarningMessage, m.status)
	assert.Equal(t, "hi", m.transcript[1].text)
}

func TestEmptyInputIgnored(t *testing.T) {
	fa := &fakeAnswerer{}
	m := sized(t, New(context.Background(), fa, "", nil))
	m.input.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, next.(Model).transcript)
	assert.Empty(t, fa.asked)
}

func TestEnterWhilePendingIgnored(t *testing.T) {
	fa := &fakeAnswerer{}
	m := sized(t, New(context.Background(), fa, "", nil))
	m.pending = true
	m.input.SetValue("again")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestQuitWord(t *testing.T) {
	m := sized(t, New(context.Background(), &fakeAnswerer{}, "", nil))
	m.input.SetValue("Quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestPriorTurnsReplayed(t *testing.T) {
	prior := []domain.Turn{
		domain.NewTurn(domain.RoleUser, "earlier question"),
		domain.NewTurn(domain.RoleFunction, "{}"),
		domain.NewTurn(domain.RoleAssistant, "earlier answer"),
	}
	m := sized(t, New(context.Background(), &fakeAnswerer{}, "", prior))
	require.Len(t, m.transcript, 2)
	assert.Contains(t, m.View(), "earlier answer")
}

func TestTabShowsSources(t *testing.T) {
	fa := &fakeAnswerer{reply: assistant.Reply{Text: "Use sync.", UsedRetrieval: true, SupportingText: "Tap sync in settings."}}
	m := sized(t, New(context.Background(), fa, "", nil))
	m = submit(t, m, "sync")
	assert.NotContains(t, m.renderTranscript(), "sources:")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, next.(Model).renderTranscript(), "sources:")
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Open the app. Tap sync now.", "sync")
	assert.Contains(t, out, "Open the app.")
	assert.Contains(t, out, "sync")
	assert.Equal(t, "", highlightBestSentence("", "q"))
}
