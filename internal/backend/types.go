// Package backend implements the HTTP client for the certificate service.
package backend

// TemplateUpload is the response from uploading a certificate template.
type TemplateUpload struct {
	FileName     string   `json:"fileName"`
	Placeholders []string `json:"placeholders"`
}

// CSVUpload is the response from uploading a recipient CSV file.
type CSVUpload struct {
	FileName string   `json:"fileName"`
	Columns  []string `json:"columns"`
}

// MappingConfig is the payload for persisting a placeholder mapping
// alongside the email configuration.
type MappingConfig struct {
	TemplateFile string            `json:"templateFile"`
	CSVFile      string            `json:"csvFile"`
	Mappings     map[string]string `json:"mappings"`
	EmailColumn  string            `json:"emailColumn"`
	EventName    string            `json:"eventName"`
	SenderName   string            `json:"senderName"`
	EmailSubject string            `json:"emailSubject,omitempty"`
	EmailBody    string            `json:"emailBody,omitempty"`
}

// PreviewRequest asks the service to render one certificate using the
// first data row.
type PreviewRequest struct {
	TemplateFile string            `json:"templateFile"`
	CSVFile      string            `json:"csvFile"`
	Mapping      map[string]string `json:"mapping"`
}

// EmailPreviewRequest asks the service to render the email subject and
// body with sample substitutions applied.
type EmailPreviewRequest struct {
	CSVFile      string            `json:"csvFile"`
	Mapping      map[string]string `json:"mapping"`
	EmailColumn  string            `json:"emailColumn"`
	EventName    string            `json:"eventName"`
	SenderName   string            `json:"senderName"`
	EmailSubject string            `json:"emailSubject,omitempty"`
	EmailBody    string            `json:"emailBody,omitempty"`
}

// EmailPreview is the rendered email content returned by the service.
type EmailPreview struct {
	Subject     string `json:"subject"`
	BodyPreview string `json:"bodyPreview"`
}

// SendRequest carries everything the service needs to generate and mail
// the certificates.
type SendRequest struct {
	TemplateFile string            `json:"templateFile"`
	CSVFile      string            `json:"csvFile"`
	Mapping      map[string]string `json:"mapping"`
	EmailColumn  string            `json:"emailColumn"`
	EventName    string            `json:"eventName"`
	SenderName   string            `json:"senderName"`
	EmailSubject string            `json:"emailSubject,omitempty"`
	EmailBody    string            `json:"emailBody,omitempty"`
	AccessToken  string            `json:"accessToken"`
}

// SendResult is the service's summary of a completed send.
type SendResult struct {
	Message string `json:"message"`
}
