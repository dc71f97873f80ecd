package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docuchat/internal/domain"
	"docuchat/internal/service"
)

// SessionPort is the TUI-facing subset of the session.
type SessionPort interface {
	ProcessDocument(ctx context.Context, name string, data []byte) (*service.ProcessResult, error)
	Ask(ctx context.Context, question string) (*service.Answer, error)
	Ready() bool
}

type focus int

const (
	focusQuestion focus = iota
	focusPicker
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

type processedMsg struct {
	path   string
	result *service.ProcessResult
	err    error
}

type answeredMsg struct {
	answer *service.Answer
	err    error
}

// Options configures the model.
type Options struct {
	// InitialFile is processed as soon as the program starts.
	InitialFile string
	// StartDir is where the file picker opens. Defaults to the working directory.
	StartDir string
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	session  SessionPort
	picker   filepicker.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width      int
	height     int
	focus      focus
	busy       bool
	busyLabel  string
	ready      bool
	initial    string
	document   string
	summary    string
	answer     *service.Answer
	cursor     int
	status     string
	statusKind statusKind
}

// New creates a new TUI model instance.
func New(session SessionPort, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	fp := filepicker.New()
	fp.AllowedTypes = []string{".pdf"}
	fp.CurrentDirectory = opts.StartDir
	if fp.CurrentDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			fp.CurrentDirectory = wd
		}
	}
	fp.AutoHeight = false
	fp.Height = 8

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		session:    session,
		picker:     fp,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		initial:    opts.InitialFile,
		status:     "Press Tab to pick a PDF, then ask questions.",
		statusKind: statusInfo,
	}
}

// Init starts the cursor blink and the file picker, and processes the
// initial file if one was given.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.picker.Init()}
	if m.initial != "" {
		cmds = append(cmds, func() tea.Msg { return pickFileMsg(m.initial) })
	}
	return tea.Batch(cmds...)
}

type pickFileMsg string

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.viewport.SetContent(m.renderAnswer())
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pickFileMsg:
		return m.startProcessing(string(msg))

	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(describe(msg.err))
			if !m.session.Ready() {
				m.document, m.summary, m.answer = "", "", nil
			}
		} else {
			m.document = msg.result.Document.Name
			m.summary = msg.result.Summary
			m.answer = nil
			m.cursor = 0
			m.status = fmt.Sprintf("Processed %s: %d pages, %d characters, %d chunks.",
				msg.result.Document.Name, msg.result.Document.Pages, msg.result.Characters, msg.result.Chunks)
			m.statusKind = statusSuccess
			m.setFocus(focusQuestion)
		}
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case answeredMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(describe(msg.err))
		} else {
			m.answer = msg.answer
			m.cursor = 0
			m.status = fmt.Sprintf("Answered from %d source chunks.", len(msg.answer.Sources))
			m.statusKind = statusSuccess
			m.input.Reset()
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		// One operation at a time.
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab":
			if m.focus == focusQuestion {
				m.setFocus(focusPicker)
			} else {
				m.setFocus(focusQuestion)
			}
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		case "pgup":
			m.viewport.ViewUp()
			return m, nil
		}
		if m.focus == focusQuestion {
			return m.updateQuestion(msg)
		}
	}

	if m.focus == focusPicker {
		return m.updatePicker(msg)
	}
	// The picker loads directories asynchronously even while hidden.
	var pickerCmd, inputCmd tea.Cmd
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.picker, pickerCmd = m.picker.Update(msg)
	}
	m.input, inputCmd = m.input.Update(msg)
	return m, tea.Batch(pickerCmd, inputCmd)
}

func (m Model) updateQuestion(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.startAsking(m.input.Value())
	case "down":
		if m.answer != nil && len(m.answer.Sources) > 0 {
			m.cursor = (m.cursor + 1) % len(m.answer.Sources)
			m.viewport.SetContent(m.renderAnswer())
			return m, nil
		}
	case "up":
		if m.answer != nil && len(m.answer.Sources) > 0 {
			m.cursor = (m.cursor - 1 + len(m.answer.Sources)) % len(m.answer.Sources)
			m.viewport.SetContent(m.renderAnswer())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		next, processCmd := m.startProcessing(path)
		return next, tea.Batch(cmd, processCmd)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.status = fmt.Sprintf("%s is not a PDF file. Please upload a PDF file.", filepath.Base(path))
		m.statusKind = statusWarning
	}
	return m, cmd
}

func (m Model) startProcessing(path string) (Model, tea.Cmd) {
	m.busy = true
	m.busyLabel = "Processing " + filepath.Base(path) + "..."
	session := m.session
	process := func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return processedMsg{path: path, err: fmt.Errorf("%w: %w", domain.ErrNoDocument, err)}
		}
		res, err := session.ProcessDocument(context.Background(), filepath.Base(path), data)
		return processedMsg{path: path, result: res, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, process)
}

func (m Model) startAsking(question string) (Model, tea.Cmd) {
	m.busy = true
	m.busyLabel = "Thinking..."
	session := m.session
	ask := func() tea.Msg {
		ans, err := session.Ask(context.Background(), question)
		return answeredMsg{answer: ans, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, ask)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusQuestion {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.resize()
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// describe maps a session error to a status line.
func describe(err error) (statusKind, string) {
	switch {
	case errors.Is(err, domain.ErrNoIndex):
		return statusWarning, "Please upload and process a PDF first."
	case errors.Is(err, domain.ErrNoDocument):
		return statusWarning, "Please upload a PDF file."
	case errors.Is(err, domain.ErrEmptyQuestion):
		return statusWarning, "Please type a question."
	case errors.Is(err, domain.ErrExtraction):
		return statusError, "Error reading PDF: " + err.Error()
	case errors.Is(err, domain.ErrNoText):
		return statusError, "The PDF contains no extractable text."
	default:
		return statusError, "Error: " + err.Error()
	}
}

func (m *Model) resize() {
	_, ah := answerBoxStyle.GetFrameSize()
	_, qh := queryBoxStyle.GetFrameSize()
	reserved := 3 + qh + 1 // header, summary, status + spacer
	if m.focus == focusPicker {
		reserved += m.picker.Height + 1
	}
	m.viewport.Width = max(20, m.width-4)
	m.viewport.Height = max(3, m.height-reserved-ah)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "docuchat"
	if m.document != "" {
		title += " · " + m.document
	}
	header := headerStyle.Render(title)
	summary := summaryStyle.Render(m.summary)

	var lower string
	if m.focus == focusPicker {
		lower = pickerBoxStyle.Render("Pick a PDF (Enter to open, Tab to go back)\n" + m.picker.View())
	} else {
		lower = queryBoxStyle.Render(m.input.View())
	}

	status := statusStyles[m.statusKind].Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + m.busyLabel
	}
	body := answerBoxStyle.Render(m.viewport.View())
	return strings.Join([]string{header, summary, body, lower, status}, "\n")
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		if m.document == "" {
			return "No document processed yet."
		}
		return "Ask a question about " + m.document + "."
	}
	var b strings.Builder
	b.WriteString(questionStyle.Render("Q: " + m.answer.Question))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(m.answer.Text))
	if n := len(m.answer.Sources); n > 0 {
		r := m.answer.Sources[m.cursor]
		b.WriteString("\n\n")
		b.WriteString(sourceTitleStyle.Render(fmt.Sprintf("Source %d/%d  chunk=%d  score=%.3f  (up/down to browse)",
			m.cursor+1, n, r.Chunk.Index, r.Score)))
		b.WriteString("\n")
		b.WriteString(highlightBestSentence(r.Chunk.Text, m.answer.Question))
	}
	return b.String()
}

var (
	headerStyle      = lipgloss.NewStyle().Bold(true)
	summaryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	questionStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sourceTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	pickerBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	statusStyles = map[statusKind]lipgloss.Style{
		statusInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		statusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		statusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		statusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)
