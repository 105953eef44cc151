// Package tui is the interactive pattern browser.
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

	"uitestgen/internal/domain"
)

// PatternPort is the TUI-facing subset of the pipeline service.
type PatternPort interface {
	Query(ctx context.Context, text string, topK int) ([]domain.Match, error)
}

type resultsMsg struct {
	query   string
	matches []domain.Match
	err     error
}

// Model is the Bubble Tea model of the pattern browser.
type Model struct {
	service   PatternPort
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.Match
	summary   string
	status    string
	cursor    int
	ready     bool
	searching bool
	lastQuery string
	timeout   time.Duration
}

// New creates a browser over service. summary is shown under the title.
func New(service PatternPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe a component, e.g. login button click"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:  service,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Type to search stored patterns.",
		timeout:  30 * time.Second,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and search result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // title and summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, max(3, msg.Height-reserved)-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case resultsMsg:
		m.searching = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("%d patterns for %q", len(msg.matches), msg.query)
			m.results = msg.matches
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderCurrent())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.searching {
				m.searching = true
				m.status = "Searching..."
				return m, m.search(q)
			}
		case "down", "tab":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrent())
				m.viewport.GotoTop()
				return m, nil
			}
		case "up", "shift+tab":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrent())
				m.viewport.GotoTop()
				return m, nil
			}
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) search(q string) tea.Cmd {
	svc, timeout := m.service, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := svc.Query(ctx, q, 10)
		return resultsMsg{query: q, matches: res, err: err}
	}
}

// View renders the layout and the selected pattern.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("UI Test Pattern Browser")
	summary := dimStyle.Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	p := r.Pattern
	var b strings.Builder
	fmt.Fprintf(&b, "Pattern %d/%d  %s  score=%.3f\n", m.cursor+1, len(m.results), p.ID, r.Score)
	meta := fmt.Sprintf("type=%s source=%s complexity=%s", p.ComponentType, p.Source, p.Complexity)
	if p.AIGenerated {
		meta += " ai-generated"
	}
	b.WriteString(dimStyle.Render(meta) + "\n")
	if len(p.Tags) > 0 {
		b.WriteString(dimStyle.Render("tags: "+strings.Join(p.Tags, ", ")) + "\n")
	}
	b.WriteString("\n" + p.Description + "\n\n")
	b.WriteString(highlightLines(p.Template, m.lastQuery))
	return b.String()
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe         = regexp.MustCompile(`[a-z][a-z0-9]*`)
)

// highlightLines emphasises the template lines sharing the most words with the query.
func highlightLines(template, query string) string {
	lines := strings.Split(strings.TrimRight(template, "\n"), "\n")
	q := toTokenSet(query)
	if len(q) == 0 {
		return strings.Join(lines, "\n")
	}
	best := 0
	scores := make([]int, len(lines))
	for i, l := range lines {
		scores[i] = overlap(q, l)
		best = max(best, scores[i])
	}
	if best == 0 {
		return strings.Join(lines, "\n")
	}
	for i, l := range lines {
		if scores[i] == best {
			lines[i] = highlightStyle.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlap(query map[string]struct{}, line string) int {
	n := 0
	for t := range toTokenSet(line) {
		if _, ok := query[t]; ok {
			n++
		}
	}
	return n
}
