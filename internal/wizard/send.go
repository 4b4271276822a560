package wizard

import (
	"context"
	"errors"
	"strings"

	"github.com/certwizard/certwizard/internal/backend"
)

// ReauthMessage is shown when the OAuth grant lacks the Gmail send
// scope. The wording is fixed; the TUI keys its re-auth prompt off it.
const ReauthMessage = "Gmail permissions required. Please re-authenticate with Gmail."

// Send precondition failures.
var (
	ErrNoToken        = errors.New("not signed in")
	ErrNoPreview      = errors.New("generate a preview before sending")
	ErrEmptyDraft     = errors.New("email subject and body cannot be empty")
	ErrAlreadySending = errors.New("a send is already in progress")
)

// Send generates and mails every certificate. accessToken must be a
// live bearer token; it is checked before any network activity. The
// negotiator supplies the draft when an edit session is open.
func (e *Engine) Send(ctx context.Context, neg *Negotiator, accessToken string) error {
	if accessToken == "" {
		return ErrNoToken
	}

	st := e.store.Get()
	if !st.PreviewGenerated {
		return ErrNoPreview
	}
	if strings.TrimSpace(st.SenderName) == "" {
		return ErrNoSenderName
	}

	subject, body := st.EmailSubject, st.EmailBody
	if draft, editing := neg.Draft(); editing {
		if strings.TrimSpace(draft.Subject) == "" || strings.TrimSpace(draft.Body) == "" {
			return ErrEmptyDraft
		}
		subject, body = draft.Subject, draft.Body
	}

	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return ErrAlreadySending
	}
	e.uploading = true
	e.mu.Unlock()

	// A new attempt clears the outcome of the previous one, including a
	// scope rejection the operator has since fixed by re-authenticating.
	e.store.Apply(Patch{
		Sending:          ptr(true),
		SendMessage:      ptr(""),
		NeedsGmailReauth: ptr(false),
	})
	defer func() {
		e.mu.Lock()
		e.uploading = false
		e.mu.Unlock()
		e.store.Apply(Patch{Sending: ptr(false)})
	}()

	res, err := e.backend.SendCertificates(ctx, backend.SendRequest{
		TemplateFile: st.TemplateName,
		CSVFile:      st.CSVName,
		Mapping:      st.Mapping,
		EmailColumn:  st.EmailColumn,
		EventName:    st.EventName,
		SenderName:   st.SenderName,
		EmailSubject: subject,
		EmailBody:    body,
		AccessToken:  accessToken,
	})
	if err != nil {
		if backend.IsScopeInsufficient(err) {
			e.logger.Warn("send rejected for missing Gmail scope")
			e.store.Apply(Patch{
				NeedsGmailReauth: ptr(true),
				SendMessage:      ptr(ReauthMessage),
			})
			return err
		}
		msg := "Failed to send certificates: " +
			backend.ErrorMessage(err, "An unexpected error occurred. Please try again.")
		e.logger.Warn("send failed", "error", err)
		e.store.Apply(Patch{SendMessage: &msg})
		return err
	}

	e.logger.Info("certificates sent", "message", res.Message)
	e.store.Apply(Patch{
		SentEmails:  ptr(true),
		SendMessage: &res.Message,
	})
	return nil
}
