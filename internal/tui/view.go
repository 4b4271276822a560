package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/certwizard/certwizard/internal/wizard"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stepDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stepHereStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stepTodoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	flashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modalStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n\n")

	switch m.engine.Step() {
	case wizard.StepTemplate, wizard.StepCSV:
		b.WriteString(m.renderPathStep())
	case wizard.StepMapping:
		b.WriteString(m.renderMappingStep())
	case wizard.StepPreview:
		b.WriteString(m.renderReviewStep())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	if m.modal != modalNone {
		return b.String() + "\n\n" + m.renderModal()
	}
	return b.String()
}

func (m Model) renderHeader() string {
	title := "certwizard"
	if m.version != "" {
		title += " " + m.version
	}
	who := "signed out"
	if m.identity != "" {
		who = m.identity
	}
	return titleStyle.Render(title) + dimStyle.Render("  ·  "+who)
}

// renderProgress shows the four steps with the current one highlighted.
func (m Model) renderProgress() string {
	current := m.engine.Step()
	parts := make([]string, 0, 4)
	for i, label := range wizard.StepLabels() {
		step := wizard.Step(i)
		text := fmt.Sprintf("%d. %s", i+1, label)
		switch {
		case step < current:
			parts = append(parts, stepDoneStyle.Render("✓ "+text))
		case step == current:
			parts = append(parts, stepHereStyle.Render("▸ "+text))
		default:
			parts = append(parts, stepTodoStyle.Render(text))
		}
	}
	return strings.Join(parts, dimStyle.Render("  ─  "))
}

func (m Model) renderPathStep() string {
	var b strings.Builder
	st := m.engine.Store().Get()

	if m.engine.Step() == wizard.StepTemplate {
		b.WriteString(labelStyle.Render("Certificate template") + "\n")
		b.WriteString(dimStyle.Render("A PDF with {placeholder} markers to fill from your data.") + "\n\n")
	} else {
		b.WriteString(labelStyle.Render("Recipient data") + "\n")
		b.WriteString(dimStyle.Render("A CSV whose header row names the available columns.") + "\n\n")
		if st.TemplateName != "" {
			b.WriteString(dimStyle.Render("Template: "+st.TemplateName) + "\n")
			b.WriteString(dimStyle.Render("Placeholders: "+strings.Join(st.Placeholders, ", ")) + "\n\n")
		}
	}

	b.WriteString(m.pathInput.View())
	return b.String()
}

func (m Model) renderMappingStep() string {
	var b strings.Builder
	st := m.engine.Store().Get()

	b.WriteString(labelStyle.Render("Map placeholders to columns") + "\n\n")

	for i, ph := range st.Placeholders {
		col := st.Mapping[ph]
		if col == "" {
			col = dimStyle.Render("(unassigned)")
		}
		b.WriteString(m.mappingRow(i, truncateRunes(ph, 24), col))
	}

	n := len(st.Placeholders)
	emailCol := st.EmailColumn
	if emailCol == "" {
		emailCol = dimStyle.Render("(unassigned)")
	}
	b.WriteString("\n")
	b.WriteString(m.mappingRow(n, "Email column", emailCol))

	event := st.EventName
	if m.editingField && m.focus == focusEventName {
		event = m.eventInput.View()
	}
	b.WriteString(m.mappingRow(n+1, "Event name", event))

	sender := st.SenderName
	if m.editingField && m.focus == focusSenderName {
		sender = m.senderInput.View()
	} else if sender == "" {
		sender = dimStyle.Render("(required)")
	}
	b.WriteString(m.mappingRow(n+2, "Sender name", sender))

	return b.String()
}

func (m Model) mappingRow(idx int, label, value string) string {
	marker := "  "
	if m.cursor == idx {
		marker = cursorStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s  %s\n", marker, padRight(label, 24), value)
}

func (m Model) renderReviewStep() string {
	var b strings.Builder
	st := m.engine.Store().Get()

	b.WriteString(labelStyle.Render("Review and send") + "\n\n")
	b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Template:", 14), st.TemplateName))
	b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Data:", 14), st.CSVName))
	b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Event:", 14), st.EventName))
	b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Sender:", 14), st.SenderName))
	b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Email column:", 14), st.EmailColumn))

	if st.PreviewGenerated {
		b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Preview:", 14), st.PreviewURL))
	} else {
		b.WriteString(fmt.Sprintf("  %s %s\n", padRight("Preview:", 14), dimStyle.Render("not generated (press p)")))
	}

	b.WriteString("\n" + labelStyle.Render("Email") + "\n")
	if m.editingEmail {
		b.WriteString("  Subject: " + m.subjectInput.View() + "\n")
		b.WriteString("  Body:    " + m.bodyInput.View() + "\n")
		b.WriteString(dimStyle.Render("  tab switches fields, enter saves, esc cancels") + "\n")
	} else {
		subject, body := m.neg.DisplayContent()
		b.WriteString("  Subject: " + truncateRunes(subject, m.width-12) + "\n")
		for _, line := range strings.Split(body, "\n") {
			b.WriteString("  " + truncateRunes(line, m.width-4) + "\n")
		}
	}

	return b.String()
}

// renderStatus shows busy/flash/error/success lines.
func (m Model) renderStatus() string {
	st := m.engine.Store().Get()
	switch {
	case m.busy && st.Sending:
		return flashStyle.Render("Sending certificates…")
	case m.busy:
		return flashStyle.Render("Working…")
	case st.NeedsGmailReauth:
		return errorStyle.Render(st.SendMessage) + "\n" +
			dimStyle.Render("Run `certwizard login` and try again.")
	case m.errMsg != "":
		return errorStyle.Render(m.errMsg)
	case m.success != "":
		return successStyle.Render(m.success)
	case m.flash != "":
		return flashStyle.Render(m.flash)
	}
	return ""
}

func (m Model) renderFooter() string {
	var hints string
	switch m.engine.Step() {
	case wizard.StepTemplate:
		hints = "enter upload · ctrl+c quit"
	case wizard.StepCSV:
		hints = "enter upload · esc back · ctrl+c quit"
	case wizard.StepMapping:
		hints = "↑/↓ move · →/space cycle · enter continue/edit · esc back · q quit"
	case wizard.StepPreview:
		hints = "p preview · e edit email · s send · r reset · esc back · q quit"
	}
	return dimStyle.Render(hints + " · ? help")
}

func (m Model) renderModal() string {
	switch m.modal {
	case modalQuitConfirm:
		return modalStyle.Render("Quit the wizard?\n\nUploads are saved; you can resume later.\n\n[y] quit  [n] stay")
	case modalSendConfirm:
		st := m.engine.Store().Get()
		return modalStyle.Render(fmt.Sprintf(
			"Send certificates for %q?\n\nEvery row in %s gets a personalized email.\n\n[y] send  [n] cancel",
			st.EventName, st.CSVName))
	case modalHelp:
		return modalStyle.Render(helpText)
	}
	return ""
}

const helpText = `Wizard keys

  Template/Data  type a path, enter to upload
  Mapping        ↑/↓ move, →/←/space cycle columns, enter on
                 name rows edits, enter elsewhere continues
  Review         p generate preview, e edit email,
                 s send, r reset send outcome

  esc back · q quit · ctrl+c force quit`
