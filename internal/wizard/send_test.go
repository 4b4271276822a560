package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/certwizard/certwizard/internal/backend"
)

// sendReadyEngine returns an engine whose state passes every send
// precondition, wired to the given backend.
func sendReadyEngine(be Backend) (*Engine, *Negotiator, *Store) {
	store := readyStore()
	store.Apply(Patch{
		PreviewGenerated: ptr(true),
		PreviewURL:       ptr("http://127.0.0.1:8090/preview.pdf"),
	})
	e := NewEngine(store, be, nil, nil, nil)
	e.SetStep(StepPreview)
	return e, NewNegotiator(store, be, nil), store
}

func TestSendSuccess(t *testing.T) {
	var got backend.SendRequest
	be := &fakeBackend{
		sendCertificatesFn: func(_ context.Context, req backend.SendRequest) (*backend.SendResult, error) {
			got = req
			return &backend.SendResult{Message: "Sent 12 certificates"}, nil
		},
	}
	e, neg, store := sendReadyEngine(be)

	if err := e.Send(context.Background(), neg, "tok-1"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.AccessToken != "tok-1" {
		t.Errorf("accessToken = %q, want tok-1", got.AccessToken)
	}
	if got.TemplateFile != "tpl-1.pdf" || got.CSVFile != "data-1.csv" {
		t.Errorf("handles = %q/%q, want durable identifiers", got.TemplateFile, got.CSVFile)
	}

	st := store.Get()
	if !st.SentEmails {
		t.Error("SentEmails = false, want true")
	}
	if st.SendMessage != "Sent 12 certificates" {
		t.Errorf("SendMessage = %q", st.SendMessage)
	}
	if st.Sending {
		t.Error("Sending flag not released")
	}
}

func TestSendRequiresToken(t *testing.T) {
	called := false
	be := &fakeBackend{
		sendCertificatesFn: func(context.Context, backend.SendRequest) (*backend.SendResult, error) {
			called = true
			return &backend.SendResult{}, nil
		},
	}
	e, neg, _ := sendReadyEngine(be)

	if err := e.Send(context.Background(), neg, ""); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	if called {
		t.Error("service called despite missing token")
	}
}

func TestSendRequiresPreview(t *testing.T) {
	store := readyStore()
	e := NewEngine(store, &fakeBackend{}, nil, nil, nil)
	neg := NewNegotiator(store, &fakeBackend{}, nil)

	if err := e.Send(context.Background(), neg, "tok-1"); !errors.Is(err, ErrNoPreview) {
		t.Errorf("err = %v, want ErrNoPreview", err)
	}
}

func TestSendRequiresNonEmptyDraftWhileEditing(t *testing.T) {
	e, neg, _ := sendReadyEngine(&fakeBackend{})
	neg.StartEdit()
	neg.SetDraft("  ", "body")

	if err := e.Send(context.Background(), neg, "tok-1"); !errors.Is(err, ErrEmptyDraft) {
		t.Errorf("err = %v, want ErrEmptyDraft", err)
	}
}

func TestSendUsesDraftContentWhileEditing(t *testing.T) {
	var got backend.SendRequest
	be := &fakeBackend{
		sendCertificatesFn: func(_ context.Context, req backend.SendRequest) (*backend.SendResult, error) {
			got = req
			return &backend.SendResult{Message: "ok"}, nil
		},
	}
	e, neg, _ := sendReadyEngine(be)
	neg.StartEdit()
	neg.SetDraft("Draft subject", "Draft body")

	if err := e.Send(context.Background(), neg, "tok-1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.EmailSubject != "Draft subject" || got.EmailBody != "Draft body" {
		t.Errorf("sent %q/%q, want draft content", got.EmailSubject, got.EmailBody)
	}
}

func TestSendScopeInsufficiency(t *testing.T) {
	be := &fakeBackend{
		sendCertificatesFn: func(context.Context, backend.SendRequest) (*backend.SendResult, error) {
			return nil, &backend.APIError{StatusCode: 403, Message: "Request had insufficient authentication scopes."}
		},
	}
	e, neg, store := sendReadyEngine(be)

	err := e.Send(context.Background(), neg, "tok-1")
	if err == nil {
		t.Fatal("expected error")
	}

	st := store.Get()
	if !st.NeedsGmailReauth {
		t.Error("NeedsGmailReauth = false, want true")
	}
	if st.SendMessage != ReauthMessage {
		t.Errorf("SendMessage = %q, want fixed reauth message", st.SendMessage)
	}
	if st.SentEmails {
		t.Error("SentEmails flipped on scope failure")
	}
	if st.Sending {
		t.Error("Sending flag not released")
	}
}

func TestSendRetryAfterReauthClearsScopeFlag(t *testing.T) {
	scopeRejected := true
	be := &fakeBackend{
		sendCertificatesFn: func(context.Context, backend.SendRequest) (*backend.SendResult, error) {
			if scopeRejected {
				return nil, &backend.APIError{StatusCode: 403, Message: "Request had insufficient authentication scopes."}
			}
			return &backend.SendResult{Message: "Sent 3 certificates"}, nil
		},
	}
	e, neg, store := sendReadyEngine(be)

	if err := e.Send(context.Background(), neg, "tok-1"); err == nil {
		t.Fatal("expected scope rejection")
	}
	if st := store.Get(); !st.NeedsGmailReauth {
		t.Fatal("NeedsGmailReauth = false after scope rejection")
	}

	// The operator re-authenticates and retries with a fresh token.
	scopeRejected = false
	if err := e.Send(context.Background(), neg, "tok-2"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	st := store.Get()
	if st.NeedsGmailReauth {
		t.Error("NeedsGmailReauth = true after successful send")
	}
	if !st.SentEmails {
		t.Error("SentEmails = false after successful send")
	}
	if st.SendMessage != "Sent 3 certificates" {
		t.Errorf("SendMessage = %q", st.SendMessage)
	}
}

func TestSendOtherFailureIsRetryable(t *testing.T) {
	fail := true
	be := &fakeBackend{
		sendCertificatesFn: func(context.Context, backend.SendRequest) (*backend.SendResult, error) {
			if fail {
				return nil, &backend.APIError{StatusCode: 500, Message: "SMTP unavailable"}
			}
			return &backend.SendResult{Message: "Sent 3 certificates"}, nil
		},
	}
	e, neg, store := sendReadyEngine(be)

	if err := e.Send(context.Background(), neg, "tok-1"); err == nil {
		t.Fatal("expected first send to fail")
	}
	st := store.Get()
	if st.SendMessage != "Failed to send certificates: SMTP unavailable" {
		t.Errorf("SendMessage = %q", st.SendMessage)
	}
	if st.NeedsGmailReauth {
		t.Error("plain failure should not demand re-auth")
	}

	fail = false
	if err := e.Send(context.Background(), neg, "tok-1"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if st := store.Get(); !st.SentEmails {
		t.Error("retry did not record success")
	}
}
