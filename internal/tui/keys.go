package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/certwizard/certwizard/internal/wizard"
)

// handleKey routes a key press by modal state, then by step.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != modalNone {
		return m.handleModalKeys(msg)
	}

	// Text inputs capture everything except their exit keys.
	if m.editingField || m.editingEmail {
		return m.handleEditingKeys(msg)
	}
	if step := m.engine.Step(); step == wizard.StepTemplate || step == wizard.StepCSV {
		return m.handlePathKeys(msg)
	}

	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	switch m.engine.Step() {
	case wizard.StepMapping:
		return m.handleMappingKeys(msg)
	case wizard.StepPreview:
		return m.handleReviewKeys(msg)
	}
	return m, nil
}

// handleGlobalKeys handles keys common to all steps (quit, help, back).
// Returns (model, cmd, true) if the key was handled.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		m.modal = modalQuitConfirm
		return m, nil, true
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true
	case "?":
		m.modal = modalHelp
		return m, nil, true
	case "esc", "left":
		if m.busy {
			return m, nil, true
		}
		step := m.engine.Back()
		m.errMsg = ""
		m.prepareStep(step)
		return m, nil, true
	}
	return m, nil, false
}

// handlePathKeys handles the template and data file steps, where a
// single path input owns the screen.
func (m Model) handlePathKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.engine.Step() == wizard.StepCSV && !m.busy {
			step := m.engine.Back()
			m.errMsg = ""
			m.prepareStep(step)
			return m, nil
		}
		m.modal = modalQuitConfirm
		return m, nil

	case "enter":
		if m.busy {
			return m, nil
		}
		path := m.pathInput.Value()
		if m.engine.Step() == wizard.StepTemplate {
			m.engine.Store().Apply(wizard.Patch{TemplateFile: &path})
		} else {
			m.engine.Store().Apply(wizard.Patch{CSVFile: &path})
		}
		m.busy = true
		m.errMsg = ""
		return m, m.advanceCmd()

	default:
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd
	}
}

// handleMappingKeys handles the mapping step: placeholder rows, the
// email column selector, and the event/sender name fields.
func (m Model) handleMappingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.engine.Store().Get()
	rowCount := len(st.Placeholders) + 3 // placeholders + email column + event + sender

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.syncMappingFocus(st)
		return m, nil

	case "down", "j":
		if m.cursor < rowCount-1 {
			m.cursor++
		}
		m.syncMappingFocus(st)
		return m, nil

	case "right", "l", " ":
		return m.cycleMappingValue(st, 1), nil

	case "h":
		return m.cycleMappingValue(st, -1), nil

	case "enter":
		switch m.focus {
		case focusEventName:
			m.editingField = true
			m.eventInput.Focus()
			return m, nil
		case focusSenderName:
			m.editingField = true
			m.senderInput.Focus()
			return m, nil
		default:
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.errMsg = ""
			return m, m.advanceCmd()
		}
	}
	return m, nil
}

// syncMappingFocus maps the cursor row to the focused field.
func (m *Model) syncMappingFocus(st wizard.State) {
	n := len(st.Placeholders)
	switch {
	case m.cursor < n:
		m.focus = focusMappingRows
	case m.cursor == n:
		m.focus = focusEmailColumn
	case m.cursor == n+1:
		m.focus = focusEventName
	default:
		m.focus = focusSenderName
	}
}

// cycleMappingValue advances the column choice under the cursor.
// Placeholder rows cycle through unassigned plus "", the email column
// row cycles through all columns.
func (m Model) cycleMappingValue(st wizard.State, dir int) Model {
	if len(st.Columns) == 0 {
		return m
	}

	n := len(st.Placeholders)
	switch {
	case m.cursor < n:
		ph := st.Placeholders[m.cursor]
		current := st.Mapping[ph]
		next := cycleChoice(append([]string{""}, st.Columns...), current, dir)
		m.engine.Store().SetMapping(ph, next)
	case m.cursor == n:
		next := cycleChoice(st.Columns, st.EmailColumn, dir)
		m.engine.Store().Apply(wizard.Patch{EmailColumn: &next})
	}
	return m
}

// cycleChoice returns the element after (or before) current in choices.
func cycleChoice(choices []string, current string, dir int) string {
	if len(choices) == 0 {
		return current
	}
	idx := 0
	for i, c := range choices {
		if c == current {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(choices)) % len(choices)
	return choices[idx]
}

// handleEditingKeys routes keys to whichever text input is active.
func (m Model) handleEditingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.editingEmail {
			m.neg.CancelEdit()
			m.editingEmail = false
			m.subjectInput.Blur()
			m.bodyInput.Blur()
			return m, nil
		}
		m.editingField = false
		m.eventInput.Blur()
		m.senderInput.Blur()
		return m, nil

	case "tab":
		if m.editingEmail {
			if m.emailCursor == 0 {
				m.emailCursor = 1
				m.subjectInput.Blur()
				m.bodyInput.Focus()
			} else {
				m.emailCursor = 0
				m.bodyInput.Blur()
				m.subjectInput.Focus()
			}
			m.neg.SetDraft(m.subjectInput.Value(), m.bodyInput.Value())
			return m, nil
		}
		return m, nil

	case "enter":
		if m.editingEmail {
			m.neg.SetDraft(m.subjectInput.Value(), m.bodyInput.Value())
			m.editingEmail = false
			m.subjectInput.Blur()
			m.bodyInput.Blur()
			return m, m.commitEmailCmd()
		}
		// Commit the name field into state.
		m.editingField = false
		switch m.focus {
		case focusEventName:
			v := m.eventInput.Value()
			m.eventInput.Blur()
			m.engine.Store().Apply(wizard.Patch{EventName: &v})
		case focusSenderName:
			v := m.senderInput.Value()
			m.senderInput.Blur()
			m.engine.Store().Apply(wizard.Patch{SenderName: &v})
		}
		return m, nil

	default:
		var cmd tea.Cmd
		if m.editingEmail {
			if m.emailCursor == 0 {
				m.subjectInput, cmd = m.subjectInput.Update(msg)
			} else {
				m.bodyInput, cmd = m.bodyInput.Update(msg)
			}
			m.neg.SetDraft(m.subjectInput.Value(), m.bodyInput.Value())
			return m, cmd
		}
		switch m.focus {
		case focusEventName:
			m.eventInput, cmd = m.eventInput.Update(msg)
		case focusSenderName:
			m.senderInput, cmd = m.senderInput.Update(msg)
		}
		return m, cmd
	}
}

// handleReviewKeys handles the review step: preview, edit, send.
func (m Model) handleReviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "p":
		m.busy = true
		m.errMsg = ""
		return m, m.generatePreviewCmd()

	case "e":
		draft := m.neg.StartEdit()
		m.subjectInput.SetValue(draft.Subject)
		m.bodyInput.SetValue(draft.Body)
		m.editingEmail = true
		m.emailCursor = 0
		m.subjectInput.Focus()
		return m, nil

	case "s":
		st := m.engine.Store().Get()
		if !m.tokens.SignedIn() {
			m.errMsg = "Sign in first: run `certwizard login`."
			return m, nil
		}
		if !st.PreviewGenerated {
			m.errMsg = "Generate a preview (p) before sending."
			return m, nil
		}
		m.modal = modalSendConfirm
		return m, nil

	case "r":
		m.engine.Store().ResetEmailState()
		m.success = ""
		m.errMsg = ""
		return m, nil
	}
	return m, nil
}

// handleModalKeys handles keys while a modal dialog is open.
func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalQuitConfirm:
		switch msg.String() {
		case "y", "enter":
			m.quitting = true
			return m, tea.Quit
		case "n", "esc", "q":
			m.modal = modalNone
			return m, nil
		}

	case modalSendConfirm:
		switch msg.String() {
		case "y", "enter":
			m.modal = modalNone
			m.busy = true
			m.errMsg = ""
			m.engine.Store().ResetEmailState()
			return m, m.sendCmd()
		case "n", "esc":
			m.modal = modalNone
			return m, nil
		}

	case modalHelp:
		switch msg.String() {
		case "esc", "q", "?", "enter":
			m.modal = modalNone
			return m, nil
		}
	}

	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}
