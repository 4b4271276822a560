package wizard

import (
	"context"
	"errors"

	"github.com/certwizard/certwizard/internal/backend"
)

// fakeBackend implements Backend with per-call function hooks.
type fakeBackend struct {
	uploadTemplateFn   func(ctx context.Context, path string) (*backend.TemplateUpload, error)
	uploadCSVFn        func(ctx context.Context, path string) (*backend.CSVUpload, error)
	saveMappingFn      func(ctx context.Context, cfg backend.MappingConfig) error
	generatePreviewFn  func(ctx context.Context, req backend.PreviewRequest) ([]byte, error)
	previewEmailFn     func(ctx context.Context, req backend.EmailPreviewRequest) (*backend.EmailPreview, error)
	sendCertificatesFn func(ctx context.Context, req backend.SendRequest) (*backend.SendResult, error)
}

func (f *fakeBackend) UploadTemplate(ctx context.Context, path string) (*backend.TemplateUpload, error) {
	if f.uploadTemplateFn == nil {
		return nil, errors.New("unexpected UploadTemplate call")
	}
	return f.uploadTemplateFn(ctx, path)
}

func (f *fakeBackend) UploadCSV(ctx context.Context, path string) (*backend.CSVUpload, error) {
	if f.uploadCSVFn == nil {
		return nil, errors.New("unexpected UploadCSV call")
	}
	return f.uploadCSVFn(ctx, path)
}

func (f *fakeBackend) SaveMapping(ctx context.Context, cfg backend.MappingConfig) error {
	if f.saveMappingFn == nil {
		return errors.New("unexpected SaveMapping call")
	}
	return f.saveMappingFn(ctx, cfg)
}

func (f *fakeBackend) GeneratePreview(ctx context.Context, req backend.PreviewRequest) ([]byte, error) {
	if f.generatePreviewFn == nil {
		return nil, errors.New("unexpected GeneratePreview call")
	}
	return f.generatePreviewFn(ctx, req)
}

func (f *fakeBackend) PreviewEmail(ctx context.Context, req backend.EmailPreviewRequest) (*backend.EmailPreview, error) {
	if f.previewEmailFn == nil {
		return nil, errors.New("unexpected PreviewEmail call")
	}
	return f.previewEmailFn(ctx, req)
}

func (f *fakeBackend) SendCertificates(ctx context.Context, req backend.SendRequest) (*backend.SendResult, error) {
	if f.sendCertificatesFn == nil {
		return nil, errors.New("unexpected SendCertificates call")
	}
	return f.sendCertificatesFn(ctx, req)
}

// fakeBridge records persisted handles.
type fakeBridge struct {
	templateName string
	placeholders []string
	csvName      string
	columns      []string
	saveErr      error
}

func (f *fakeBridge) SaveTemplate(name string, placeholders []string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.templateName = name
	f.placeholders = placeholders
	return nil
}

func (f *fakeBridge) SaveCSV(name string, columns []string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.csvName = name
	f.columns = columns
	return nil
}

// fakeSink publishes previews to a canned URL.
type fakeSink struct {
	published []byte
	url       string
	err       error
}

func (f *fakeSink) Publish(data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = data
	if f.url == "" {
		f.url = "http://127.0.0.1:8090/preview.pdf"
	}
	return f.url, nil
}

// readyStore returns a store with a mapping-complete session.
func readyStore() *Store {
	s := NewStore()
	s.Apply(Patch{
		TemplateFile: ptr("/tmp/cert.pdf"),
		TemplateName: ptr("tpl-1.pdf"),
		Placeholders: &[]string{"Name", "Course"},
		CSVFile:      ptr("/tmp/people.csv"),
		CSVName:      ptr("data-1.csv"),
		Columns:      &[]string{"name", "course", "email"},
		Mapping:      &map[string]string{"Name": "name", "Course": "course"},
		EmailColumn:  ptr("email"),
		SenderName:   ptr("Ada"),
	})
	return s
}
