// Package tui provides the interactive terminal wizard for certwizard.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/certwizard/certwizard/internal/wizard"
)

// TokenProvider supplies the bearer token for the send operation.
type TokenProvider interface {
	SignedIn() bool
	AccessToken(ctx context.Context) (string, error)
}

// Options configuration for the TUI.
type Options struct {
	Version  string
	Identity string // Signed-in account email, empty when signed out
}

// focusField identifies the focused control on the mapping step.
type focusField int

const (
	focusMappingRows focusField = iota
	focusEmailColumn
	focusEventName
	focusSenderName
)

// modalType represents the type of modal dialog.
type modalType int

const (
	modalNone modalType = iota
	modalSendConfirm
	modalQuitConfirm
	modalHelp
)

// Model is the wizard TUI model following the Elm architecture.
type Model struct {
	engine *wizard.Engine
	neg    *wizard.Negotiator
	tokens TokenProvider

	version  string
	identity string

	// Step-local UI state
	pathInput    textinput.Model // Template/CSV path entry
	cursor       int             // Row cursor on the mapping step
	focus        focusField
	eventInput   textinput.Model
	senderInput  textinput.Model
	editingField bool // True while a text input is capturing keys

	// Email editing (review step)
	editingEmail bool
	subjectInput textinput.Model
	bodyInput    textinput.Model
	emailCursor  int // 0 = subject, 1 = body

	// Modal state
	modal modalType

	// Terminal dimensions
	width  int
	height int

	// Async state
	busy    bool
	errMsg  string
	flash   string
	success string

	// Request tracking to ignore stale async results
	advanceRequestID uint64
	previewRequestID uint64
	emailRequestID   uint64
	sendRequestID    uint64

	quitting bool
}

// New creates the wizard TUI model.
func New(engine *wizard.Engine, neg *wizard.Negotiator, tokens TokenProvider, opts Options) Model {
	pathInput := textinput.New()
	pathInput.Placeholder = "path to certificate template (.pdf)"
	pathInput.CharLimit = 512
	pathInput.Width = 60
	pathInput.Focus()

	eventInput := textinput.New()
	eventInput.Placeholder = "event name"
	eventInput.CharLimit = 200
	eventInput.Width = 40

	senderInput := textinput.New()
	senderInput.Placeholder = "sender name"
	senderInput.CharLimit = 100
	senderInput.Width = 40

	subjectInput := textinput.New()
	subjectInput.Placeholder = "email subject"
	subjectInput.CharLimit = 300
	subjectInput.Width = 60

	bodyInput := textinput.New()
	bodyInput.Placeholder = "email body"
	bodyInput.CharLimit = 2000
	bodyInput.Width = 60

	st := engine.Store().Get()
	eventInput.SetValue(st.EventName)
	senderInput.SetValue(st.SenderName)

	return Model{
		engine:       engine,
		neg:          neg,
		tokens:       tokens,
		version:      opts.Version,
		identity:     opts.Identity,
		pathInput:    pathInput,
		eventInput:   eventInput,
		senderInput:  senderInput,
		subjectInput: subjectInput,
		bodyInput:    bodyInput,
		width:        100,
		height:       30,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Async result messages. Every message carries the request ID it was
// issued with so stale results are dropped.

type advanceDoneMsg struct {
	requestID uint64
	step      wizard.Step
	err       error
}

type previewDoneMsg struct {
	requestID uint64
	err       error
}

type emailPreviewDoneMsg struct {
	requestID uint64
}

type sendDoneMsg struct {
	requestID uint64
	err       error
}

// advanceCmd runs the current step's transition action.
func (m *Model) advanceCmd() tea.Cmd {
	m.advanceRequestID++
	requestID := m.advanceRequestID
	engine := m.engine
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = advanceDoneMsg{requestID: requestID, err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		step, err := engine.Advance(context.Background())
		return advanceDoneMsg{requestID: requestID, step: step, err: err}
	}
}

// generatePreviewCmd renders the certificate preview.
func (m *Model) generatePreviewCmd() tea.Cmd {
	m.previewRequestID++
	requestID := m.previewRequestID
	engine := m.engine
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = previewDoneMsg{requestID: requestID, err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		err := engine.GeneratePreview(context.Background())
		return previewDoneMsg{requestID: requestID, err: err}
	}
}

// refreshEmailPreviewCmd re-renders the email preview; failures keep
// the previous preview and are not surfaced.
func (m *Model) refreshEmailPreviewCmd() tea.Cmd {
	m.emailRequestID++
	requestID := m.emailRequestID
	neg := m.neg
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = emailPreviewDoneMsg{requestID: requestID}
			}
		}()
		neg.RefreshPreview(context.Background())
		return emailPreviewDoneMsg{requestID: requestID}
	}
}

// commitEmailCmd commits the draft and refreshes the preview.
func (m *Model) commitEmailCmd() tea.Cmd {
	m.emailRequestID++
	requestID := m.emailRequestID
	neg := m.neg
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = emailPreviewDoneMsg{requestID: requestID}
			}
		}()
		neg.CommitEdit(context.Background())
		return emailPreviewDoneMsg{requestID: requestID}
	}
}

// sendCmd acquires a token and runs the send operation.
func (m *Model) sendCmd() tea.Cmd {
	m.sendRequestID++
	requestID := m.sendRequestID
	engine, neg, tokens := m.engine, m.neg, m.tokens
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = sendDoneMsg{requestID: requestID, err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		ctx := context.Background()
		token, err := tokens.AccessToken(ctx)
		if err != nil {
			return sendDoneMsg{requestID: requestID, err: wizard.ErrNoToken}
		}
		err = engine.Send(ctx, neg, token)
		return sendDoneMsg{requestID: requestID, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case advanceDoneMsg:
		if msg.requestID != m.advanceRequestID {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.prepareStep(msg.step)
		// Entering the review step warms the email preview.
		if msg.step == wizard.StepPreview {
			return m, m.refreshEmailPreviewCmd()
		}
		return m, nil

	case previewDoneMsg:
		if msg.requestID != m.previewRequestID {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.flash = "Preview generated. Open the URL below to view it."
		// The email preview shows the same data row; re-render it so
		// both panes reflect the mapping that produced this preview.
		return m, m.refreshEmailPreviewCmd()

	case emailPreviewDoneMsg:
		if msg.requestID != m.emailRequestID {
			return m, nil
		}
		return m, nil

	case sendDoneMsg:
		if msg.requestID != m.sendRequestID {
			return m, nil
		}
		m.busy = false
		st := m.engine.Store().Get()
		if msg.err != nil {
			m.errMsg = st.SendMessage
			if m.errMsg == "" {
				m.errMsg = msg.err.Error()
			}
			return m, nil
		}
		m.errMsg = ""
		m.success = st.SendMessage
		return m, nil
	}

	return m, nil
}

// prepareStep resets step-local UI state when the step changes.
func (m *Model) prepareStep(step wizard.Step) {
	m.cursor = 0
	m.flash = ""
	switch step {
	case wizard.StepTemplate:
		m.pathInput.Placeholder = "path to certificate template (.pdf)"
		m.pathInput.SetValue(m.engine.Store().Get().TemplateFile)
		m.pathInput.Focus()
	case wizard.StepCSV:
		m.pathInput.Placeholder = "path to recipient data (.csv)"
		m.pathInput.SetValue(m.engine.Store().Get().CSVFile)
		m.pathInput.Focus()
	case wizard.StepMapping:
		m.focus = focusMappingRows
		m.editingField = false
		st := m.engine.Store().Get()
		m.eventInput.SetValue(st.EventName)
		m.senderInput.SetValue(st.SenderName)
	case wizard.StepPreview:
		m.editingEmail = false
	}
}
