package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

// AskPort is the TUI-facing subset of a loaded document session.
type AskPort interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
	Summarize(ctx context.Context) (domain.Answer, error)
}

// Model is the Bubble Tea model for the interactive question loop.
type Model struct {
	session  AskPort
	input    textinput.Model
	viewport viewport.Model
	answer   *domain.Answer
	header   string
	status   string
	cursor   int // -1 shows the answer, >=0 a supporting chunk
	ready    bool
	lastQ    string
}

// New creates a new TUI model over a loaded session. The header line
// typically names the document and its chunk count.
func New(session AskPort, header string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (/summary for a summary)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{session: session, input: ti, viewport: vp, header: header, cursor: -1, status: "Document loaded. Ask away."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and question boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // title + document line
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.runQuestion(q)
				m.input.SetValue("")
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "down":
			if m.answer != nil && len(m.answer.Supporting) > 0 {
				m.cursor++
				if m.cursor >= len(m.answer.Supporting) {
					m.cursor = -1
				}
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if m.answer != nil && len(m.answer.Supporting) > 0 {
				m.cursor--
				if m.cursor < -1 {
					m.cursor = len(m.answer.Supporting) - 1
				}
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runQuestion(q string) {
	var (
		ans domain.Answer
		err error
	)
	if q == "/summary" {
		ans, err = m.session.Summarize(context.Background())
	} else {
		ans, err = m.session.Ask(context.Background(), q)
	}
	if err != nil {
		m.status = "Error: " + domain.UserMessage(err)
		m.answer = nil
		return
	}
	m.answer = &ans
	m.cursor = -1
	m.lastQ = q
	m.status = fmt.Sprintf("Answered in %s  confidence=%.2f  supporting=%d (up/down to inspect)",
		ans.Elapsed.Round(10*time.Millisecond), ans.Confidence, len(ans.Supporting))
}

// View renders the TUI layout and current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := lipgloss.NewStyle().Bold(true).Render("Document Q&A")
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.header)
	input := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	answer := answerBoxStyle.Render(m.viewport.View())
	return title + "\n" + header + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if m.answer == nil {
		return "No answer yet."
	}
	if m.cursor < 0 {
		body := m.answer.Text
		if m.answer.FormulatedQuestion != "" {
			body = "Interpreted as: " + m.answer.FormulatedQuestion + "\n\n" + body
		}
		return confidenceLine(m.answer.Confidence) + "\n\n" + body
	}
	sc := m.answer.Supporting[m.cursor]
	title := fmt.Sprintf("Supporting chunk %d/%d  similarity=%.3f  offsets=[%d,%d)",
		m.cursor+1, len(m.answer.Supporting), sc.Score, sc.Chunk.Start, sc.Chunk.End)
	body := highlightBestSentence(sc.Chunk.Text, m.lastQ)
	return title + "\n\n" + body
}

func confidenceLine(c float64) string {
	label := "low"
	switch {
	case c >= 0.75:
		label = "high"
	case c >= 0.5:
		label = "medium"
	}
	return fmt.Sprintf("Confidence: %.2f (%s)", c, label)
}

var (
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence sharing the most tokens
// with the question so the supporting evidence is easy to spot.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
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

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
