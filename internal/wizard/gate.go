package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/certwizard/certwizard/internal/backend"
)

// Backend is the slice of the certificate service the wizard drives.
type Backend interface {
	UploadTemplate(ctx context.Context, path string) (*backend.TemplateUpload, error)
	UploadCSV(ctx context.Context, path string) (*backend.CSVUpload, error)
	SaveMapping(ctx context.Context, cfg backend.MappingConfig) error
	GeneratePreview(ctx context.Context, req backend.PreviewRequest) ([]byte, error)
	PreviewEmail(ctx context.Context, req backend.EmailPreviewRequest) (*backend.EmailPreview, error)
	SendCertificates(ctx context.Context, req backend.SendRequest) (*backend.SendResult, error)
}

// Bridge persists durable upload identifiers so an interrupted session
// can resume without re-uploading.
type Bridge interface {
	SaveTemplate(name string, placeholders []string) error
	SaveCSV(name string, columns []string) error
}

// PreviewSink receives the generated certificate payload and returns a
// URL the operator can open.
type PreviewSink interface {
	Publish(data []byte) (string, error)
}

// Precondition failures for step transitions. These never leave the
// process; the TUI maps them to inline messages.
var (
	ErrNoTemplate        = errors.New("no template file selected")
	ErrNoCSV             = errors.New("no data file selected")
	ErrNoPlaceholders    = errors.New("No placeholders found in template. Please check your file.")
	ErrNoColumns         = errors.New("No columns found in data file. Please check your file.")
	ErrMappingIncomplete = errors.New("map every placeholder to a column before continuing")
	ErrNoEmailColumn     = errors.New("select the email column before continuing")
	ErrNoEventName       = errors.New("event name is required")
	ErrNoSenderName      = errors.New("sender name is required")
	ErrBusy              = errors.New("an operation is already in progress")
)

// Engine advances the wizard through its steps, performing the
// per-transition service call. A transition that fails leaves the step
// and accumulated state unchanged so the operator can retry.
type Engine struct {
	store   *Store
	backend Backend
	bridge  Bridge
	sink    PreviewSink
	logger  *slog.Logger

	mu        sync.Mutex
	step      Step
	uploading bool
	stepErr   string
}

// NewEngine creates an engine at the template step.
func NewEngine(store *Store, be Backend, bridge Bridge, sink PreviewSink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		backend: be,
		bridge:  bridge,
		sink:    sink,
		logger:  logger,
	}
}

// Store returns the engine's state store.
func (e *Engine) Store() *Store { return e.store }

// Step returns the current step.
func (e *Engine) Step() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Busy reports whether a transition or send is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploading
}

// StepError returns the message from the last failed transition, empty
// after a success.
func (e *Engine) StepError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepErr
}

// SetStep forces the engine to a step. Used when resuming a persisted
// session that already holds uploaded identifiers.
func (e *Engine) SetStep(s Step) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step = s
}

// Back moves one step backward. It never fails, performs no service
// calls, and preserves all accumulated state.
func (e *Engine) Back() Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.step > StepTemplate {
		e.step--
	}
	e.stepErr = ""
	return e.step
}

// Advance performs the current step's transition action and moves
// forward on success. On failure the step is unchanged and the error
// is both returned and recorded as the step message.
func (e *Engine) Advance(ctx context.Context) (Step, error) {
	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return e.step, ErrBusy
	}
	e.uploading = true
	step := e.step
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.uploading = false
		e.mu.Unlock()
	}()

	var err error
	switch step {
	case StepTemplate:
		err = e.uploadTemplate(ctx)
	case StepCSV:
		err = e.uploadCSV(ctx)
	case StepMapping:
		err = e.saveMapping(ctx)
	case StepPreview:
		// Final step; Send is a separate operation.
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.stepErr = err.Error()
		return e.step, err
	}
	e.stepErr = ""
	if e.step < StepPreview {
		e.step++
	}
	return e.step, nil
}

func (e *Engine) uploadTemplate(ctx context.Context) error {
	st := e.store.Get()
	if st.TemplateFile == "" {
		return ErrNoTemplate
	}

	up, err := e.backend.UploadTemplate(ctx, st.TemplateFile)
	if err != nil {
		msg := backend.ErrorMessage(err, "Failed to upload template. Please try again.")
		e.logger.Warn("template upload failed", "file", st.TemplateFile, "error", err)
		return errors.New(msg)
	}
	if len(up.Placeholders) == 0 {
		return ErrNoPlaceholders
	}

	e.store.Apply(Patch{
		TemplateName: &up.FileName,
		Placeholders: &up.Placeholders,
	})
	if e.bridge != nil {
		if err := e.bridge.SaveTemplate(up.FileName, up.Placeholders); err != nil {
			e.logger.Warn("persist template handle failed", "error", err)
		}
	}
	e.logger.Debug("template uploaded", "name", up.FileName, "placeholders", len(up.Placeholders))
	return nil
}

func (e *Engine) uploadCSV(ctx context.Context) error {
	st := e.store.Get()
	if st.CSVFile == "" {
		return ErrNoCSV
	}

	up, err := e.backend.UploadCSV(ctx, st.CSVFile)
	if err != nil {
		msg := backend.ErrorMessage(err, "Failed to upload data file. Please try again.")
		e.logger.Warn("csv upload failed", "file", st.CSVFile, "error", err)
		return errors.New(msg)
	}
	if len(up.Columns) == 0 {
		return ErrNoColumns
	}

	e.store.Apply(Patch{
		CSVName: &up.FileName,
		Columns: &up.Columns,
	})
	if e.bridge != nil {
		if err := e.bridge.SaveCSV(up.FileName, up.Columns); err != nil {
			e.logger.Warn("persist csv handle failed", "error", err)
		}
	}
	e.logger.Debug("csv uploaded", "name", up.FileName, "columns", len(up.Columns))
	return nil
}

func (e *Engine) saveMapping(ctx context.Context) error {
	st := e.store.Get()
	if !IsComplete(st.Mapping, st.Placeholders) {
		return ErrMappingIncomplete
	}
	if st.EmailColumn == "" {
		return ErrNoEmailColumn
	}
	if strings.TrimSpace(st.EventName) == "" {
		return ErrNoEventName
	}
	if strings.TrimSpace(st.SenderName) == "" {
		return ErrNoSenderName
	}

	err := e.backend.SaveMapping(ctx, backend.MappingConfig{
		TemplateFile: st.TemplateName,
		CSVFile:      st.CSVName,
		Mappings:     st.Mapping,
		EmailColumn:  st.EmailColumn,
		EventName:    st.EventName,
		SenderName:   st.SenderName,
		EmailSubject: st.EmailSubject,
		EmailBody:    st.EmailBody,
	})
	if err != nil {
		msg := backend.ErrorMessage(err, "Failed to save mapping. Please try again.")
		e.logger.Warn("save mapping failed", "error", err)
		return errors.New(msg)
	}
	return nil
}

// GeneratePreview renders one certificate from the first data row,
// publishes it through the sink, and records the resulting URL.
func (e *Engine) GeneratePreview(ctx context.Context) error {
	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return ErrBusy
	}
	e.uploading = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.uploading = false
		e.mu.Unlock()
	}()

	st := e.store.Get()
	if !IsComplete(st.Mapping, st.Placeholders) {
		return ErrMappingIncomplete
	}

	data, err := e.backend.GeneratePreview(ctx, backend.PreviewRequest{
		TemplateFile: st.TemplateName,
		CSVFile:      st.CSVName,
		Mapping:      st.Mapping,
	})
	if err != nil {
		msg := backend.ErrorMessage(err, "Failed to generate preview. Please try again.")
		e.logger.Warn("generate preview failed", "error", err)
		return errors.New(msg)
	}

	url := ""
	if e.sink != nil {
		url, err = e.sink.Publish(data)
		if err != nil {
			e.logger.Warn("publish preview failed", "error", err)
			return errors.New("Failed to generate preview. Please try again.")
		}
	}

	e.store.Apply(Patch{
		PreviewGenerated: ptr(true),
		PreviewURL:       &url,
	})
	return nil
}
