// Package wizard implements the four-step certificate mailing workflow:
// template upload, recipient data upload, placeholder mapping, and
// review/send.
package wizard

import (
	"sync"

	"github.com/certwizard/certwizard/internal/backend"
)

// DefaultEventName seeds a fresh session.
const DefaultEventName = "Certificate Awarding Ceremony"

// Step identifies a wizard step. Steps are ordered; Back and Advance
// move one position at a time.
type Step int

const (
	StepTemplate Step = iota
	StepCSV
	StepMapping
	StepPreview
)

// String returns the operator-facing step label.
func (s Step) String() string {
	switch s {
	case StepTemplate:
		return "Template"
	case StepCSV:
		return "Data"
	case StepMapping:
		return "Mapping"
	case StepPreview:
		return "Review"
	default:
		return "Unknown"
	}
}

// StepLabels lists the step labels in order, for progress displays.
func StepLabels() []string {
	return []string{"Template", "Data", "Mapping", "Review"}
}

// State is the full wizard session. TemplateFile and CSVFile are local
// paths before upload; TemplateName and CSVName are the durable
// identifiers the service assigns after upload.
type State struct {
	TemplateFile string
	TemplateName string
	Placeholders []string

	CSVFile string
	CSVName string
	Columns []string

	Mapping     map[string]string
	EmailColumn string

	EventName    string
	SenderName   string
	EmailSubject string
	EmailBody    string

	EmailPreview backend.EmailPreview

	PreviewGenerated bool
	PreviewURL       string

	Sending          bool
	SentEmails       bool
	SendMessage      string
	NeedsGmailReauth bool
}

// Patch holds optional updates. Only non-nil fields are applied.
type Patch struct {
	TemplateFile *string
	TemplateName *string
	Placeholders *[]string

	CSVFile *string
	CSVName *string
	Columns *[]string

	Mapping     *map[string]string
	EmailColumn *string

	EventName    *string
	SenderName   *string
	EmailSubject *string
	EmailBody    *string

	EmailPreview *backend.EmailPreview

	PreviewGenerated *bool
	PreviewURL       *string

	Sending          *bool
	SentEmails       *bool
	SendMessage      *string
	NeedsGmailReauth *bool
}

// Store holds the wizard state behind a mutex. Snapshots returned by
// Get are deep copies; callers never observe later mutations.
type Store struct {
	mu    sync.Mutex
	state State
	subs  []func(State)
}

// NewStore creates a store seeded with the default event name.
func NewStore() *Store {
	return &Store{
		state: State{
			EventName: DefaultEventName,
			Mapping:   map[string]string{},
		},
	}
}

// Get returns a snapshot of the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to be called with a snapshot after every
// Apply. Callbacks run synchronously while no lock is held.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Apply merges the set fields of p into the state and returns the new
// snapshot. Changing any input that feeds the generated preview
// (mapping, email column, event/sender names, email content) after a
// preview exists invalidates that preview.
func (s *Store) Apply(p Patch) State {
	s.mu.Lock()

	invalidate := s.state.PreviewGenerated && p.PreviewGenerated == nil && touchesPreviewInputs(p)

	if p.TemplateFile != nil {
		s.state.TemplateFile = *p.TemplateFile
	}
	if p.TemplateName != nil {
		s.state.TemplateName = *p.TemplateName
	}
	if p.Placeholders != nil {
		s.state.Placeholders = append([]string(nil), (*p.Placeholders)...)
	}
	if p.CSVFile != nil {
		s.state.CSVFile = *p.CSVFile
	}
	if p.CSVName != nil {
		s.state.CSVName = *p.CSVName
	}
	if p.Columns != nil {
		s.state.Columns = append([]string(nil), (*p.Columns)...)
	}
	if p.Mapping != nil {
		s.state.Mapping = copyMapping(*p.Mapping)
	}
	if p.EmailColumn != nil {
		s.state.EmailColumn = *p.EmailColumn
	}
	if p.EventName != nil {
		s.state.EventName = *p.EventName
	}
	if p.SenderName != nil {
		s.state.SenderName = *p.SenderName
	}
	if p.EmailSubject != nil {
		s.state.EmailSubject = *p.EmailSubject
	}
	if p.EmailBody != nil {
		s.state.EmailBody = *p.EmailBody
	}
	if p.EmailPreview != nil {
		s.state.EmailPreview = *p.EmailPreview
	}
	if p.PreviewGenerated != nil {
		s.state.PreviewGenerated = *p.PreviewGenerated
	}
	if p.PreviewURL != nil {
		s.state.PreviewURL = *p.PreviewURL
	}
	if p.Sending != nil {
		s.state.Sending = *p.Sending
	}
	if p.SentEmails != nil {
		s.state.SentEmails = *p.SentEmails
	}
	if p.SendMessage != nil {
		s.state.SendMessage = *p.SendMessage
	}
	if p.NeedsGmailReauth != nil {
		s.state.NeedsGmailReauth = *p.NeedsGmailReauth
	}

	if invalidate {
		s.state.PreviewGenerated = false
		s.state.PreviewURL = ""
	}

	snapshot := s.state.clone()
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return snapshot
}

// SetMapping assigns one placeholder to a column. An empty column
// clears the assignment value but keeps the key so the operator sees
// which placeholders remain unmapped.
func (s *Store) SetMapping(placeholder, column string) State {
	s.mu.Lock()
	m := copyMapping(s.state.Mapping)
	s.mu.Unlock()
	m[placeholder] = column
	return s.Apply(Patch{Mapping: &m})
}

// ResetEmailState clears the outcome of a previous send so a new
// attempt starts clean.
func (s *Store) ResetEmailState() State {
	f, empty := false, ""
	return s.Apply(Patch{SentEmails: &f, SendMessage: &empty})
}

// ResetPreview discards the generated certificate preview.
func (s *Store) ResetPreview() State {
	f, empty := false, ""
	return s.Apply(Patch{PreviewGenerated: &f, PreviewURL: &empty})
}

// touchesPreviewInputs reports whether p changes any field the
// generated preview depends on.
func touchesPreviewInputs(p Patch) bool {
	return p.Mapping != nil || p.EmailColumn != nil || p.EventName != nil ||
		p.SenderName != nil || p.EmailSubject != nil || p.EmailBody != nil
}

func (st State) clone() State {
	out := st
	out.Placeholders = append([]string(nil), st.Placeholders...)
	out.Columns = append([]string(nil), st.Columns...)
	out.Mapping = copyMapping(st.Mapping)
	return out
}

func copyMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func ptr[T any](v T) *T { return &v }
