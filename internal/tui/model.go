package tui

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"helperbot/internal/assistant"
	"helperbot/internal/domain"
)

// Answerer is the TUI-facing subset of the orchestrator.
type Answerer interface {
	Answer(ctx context.Context, userMessage string) (assistant.Reply, error)
}

type entry struct {
	role domain.Role
	text string
	// sources is the supporting manual text behind an assistant reply.
	sources  string
	question string
}

type answerMsg struct {
	reply assistant.Reply
	err   error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx         context.Context
	answerer    Answerer
	input       textinput.Model
	viewport    viewport.Model
	transcript  []entry
	summary     string
	status      string
	pending     bool
	showSources bool
	ready       bool
}

// New creates a chat model. prior is the replayed conversation, if any.
func New(ctx context.Context, answerer Answerer, summary string, prior []domain.Turn) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the product and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)

	m := Model{
		ctx:      ctx,
		answerer: answerer,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready. Tab shows sources, Ctrl+C quits.",
	}
	for _, t := range prior {
		if t.Role == domain.RoleUser || t.Role == domain.RoleAssistant {
			m.transcript = append(m.transcript, entry{role: t.Role, text: t.Content})
		}
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		last := len(m.transcript) - 1
		question := ""
		if last >= 0 {
			question = m.transcript[last].text
		}
		if msg.err != nil {
			m.transcript = append(m.transcript, entry{role: domain.RoleAssistant, text: assistant.UserMessage(msg.err)})
			m.status = "Error: " + msg.err.Error()
		} else {
			m.transcript = append(m.transcript, entry{
				role:     domain.RoleAssistant,
				text:     msg.reply.Text,
				sources:  msg.reply.SupportingText,
				question: question,
			})
			m.status = "Intent: " + intentLabel(msg.reply.Intent)
			if msg.reply.PersistenceWarning != nil {
				m.status = assistant.PersistenceWarningMessage
			}
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			if isQuit(q) {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.transcript = append(m.transcript, entry{role: domain.RoleUser, text: q})
			m.pending = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case "tab":
			m.showSources = !m.showSources
			m.refresh()
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, answerer := m.ctx, m.answerer
	return func() tea.Msg {
		reply, err := answerer.Answer(ctx, q)
		return answerMsg{reply: reply, err: err}
	}
}

// View renders the header, transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Helper Bot")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No messages yet."
	}
	var sb strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if e.role == domain.RoleUser {
			sb.WriteString(userStyle.Render("You: "))
		} else {
			sb.WriteString(botStyle.Render("AI: "))
		}
		sb.WriteString(e.text)
		if m.showSources && e.sources != "" {
			sb.WriteString("\n")
			sb.WriteString(sourceStyle.Render("sources: "))
			sb.WriteString(highlightBestSentence(e.sources, e.question))
		}
	}
	return sb.String()
}

func intentLabel(in domain.Intent) string {
	if in == nil {
		return "unknown"
	}
	return in.Label()
}

func isQuit(s string) bool {
	s = strings.ToLower(s)
	return s == "quit" || s == "exit"
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe         = regexp.MustCompile(`[^.!?\n]+[.!?]?`)
)

// highlightBestSentence emphasises the sentence sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
