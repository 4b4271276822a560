package wizard

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/certwizard/certwizard/internal/backend"
)

// EditSession holds the draft subject and body while the operator is
// editing. Drafts never reach the service until committed, except in
// preview requests, which intentionally reflect work in progress.
type EditSession struct {
	Subject string
	Body    string
}

// Negotiator manages the committed/draft duality of the email content
// and keeps the server-rendered preview current.
type Negotiator struct {
	store   *Store
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	session *EditSession
}

// NewNegotiator creates a negotiator with no edit in progress.
func NewNegotiator(store *Store, be Backend, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{store: store, backend: be, logger: logger}
}

// Editing reports whether an edit session is open.
func (n *Negotiator) Editing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.session != nil
}

// Draft returns a copy of the current draft, or false when not editing.
func (n *Negotiator) Draft() (EditSession, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == nil {
		return EditSession{}, false
	}
	return *n.session, true
}

// StartEdit opens an edit session seeded from the committed values.
// Re-entering while already editing re-copies, discarding unsaved
// draft changes.
func (n *Negotiator) StartEdit() EditSession {
	st := n.store.Get()
	n.mu.Lock()
	defer n.mu.Unlock()
	n.session = &EditSession{Subject: st.EmailSubject, Body: st.EmailBody}
	return *n.session
}

// SetDraft replaces the draft content. No-op when not editing.
func (n *Negotiator) SetDraft(subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session != nil {
		n.session.Subject = subject
		n.session.Body = body
	}
}

// CommitEdit promotes the draft to the committed values and closes the
// session, then refreshes the preview. The commit itself always
// succeeds; a preview failure is logged and leaves the previous
// preview in place.
func (n *Negotiator) CommitEdit(ctx context.Context) {
	n.mu.Lock()
	if n.session == nil {
		n.mu.Unlock()
		return
	}
	subject, body := n.session.Subject, n.session.Body
	n.session = nil
	n.mu.Unlock()

	n.store.Apply(Patch{EmailSubject: &subject, EmailBody: &body})
	n.RefreshPreview(ctx)
}

// CancelEdit discards the draft and closes the session.
func (n *Negotiator) CancelEdit() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.session = nil
}

// RefreshPreview asks the service to re-render the email preview. It
// is a no-op until the mapping is complete, the email column chosen,
// and the sender named. While editing, draft values are sent so the
// operator previews work in progress. Failures are non-fatal: the last
// good preview stays.
func (n *Negotiator) RefreshPreview(ctx context.Context) {
	st := n.store.Get()
	if !IsComplete(st.Mapping, st.Placeholders) || st.EmailColumn == "" ||
		strings.TrimSpace(st.SenderName) == "" {
		return
	}

	subject, body := st.EmailSubject, st.EmailBody
	n.mu.Lock()
	if n.session != nil {
		subject, body = n.session.Subject, n.session.Body
	}
	n.mu.Unlock()

	preview, err := n.backend.PreviewEmail(ctx, backend.EmailPreviewRequest{
		CSVFile:      st.CSVName,
		Mapping:      st.Mapping,
		EmailColumn:  st.EmailColumn,
		EventName:    st.EventName,
		SenderName:   st.SenderName,
		EmailSubject: subject,
		EmailBody:    body,
	})
	if err != nil {
		n.logger.Warn("email preview failed", "error", err)
		return
	}
	n.store.Apply(Patch{EmailPreview: preview})
}

// DisplayContent returns the subject and body to show the operator:
// the server-rendered preview when available, otherwise a client-side
// fallback with a literal [Name] stand-in. The fallback is cosmetic
// and never sent.
func (n *Negotiator) DisplayContent() (subject, body string) {
	st := n.store.Get()
	subject = st.EmailPreview.Subject
	body = st.EmailPreview.BodyPreview
	if subject == "" {
		subject = FallbackSubject(st.EventName)
	}
	if body == "" {
		body = FallbackBody(st.EventName, st.SenderName)
	}
	return subject, body
}

// FallbackSubject is the client-side subject shown before the server
// has rendered a preview.
func FallbackSubject(eventName string) string {
	return "Your " + eventName + " Certificate"
}

// FallbackBody is the client-side body shown before the server has
// rendered a preview. [Name] is a literal stand-in.
func FallbackBody(eventName, senderName string) string {
	return "Dear [Name],\n\nCongratulations on completing the " + eventName +
		"!\n\nYour personalized certificate is attached to this email.\n\nBest regards,\n" + senderName
}
