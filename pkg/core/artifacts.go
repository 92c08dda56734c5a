// Package core provides the execution model types for shopcheck.
package core

// Attachment represents an artifact attached to a scenario's report record
type Attachment struct {
	Name        string `json:"name"`           // Label: "Screenshot on Failure", "log"
	ContentType string `json:"contentType"`    // MIME type: image/png, text/plain
	Path        string `json:"path,omitempty"` // Persisted file path, if written to disk
	Text        string `json:"text,omitempty"` // Inline content of text attachments
	Body        []byte `json:"-"`              // In-memory content (not serialized to JSON)
}

// Common attachment labels
const (
	AttachmentFailureScreenshot = "Screenshot on Failure"
	AttachmentScenarioLog       = "Scenario log"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a failure screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentFailureScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// NewTextAttachment creates a plain text attachment
func NewTextAttachment(name, text string) Attachment {
	return Attachment{
		Name:        name,
		ContentType: ContentTypeText,
		Text:        text,
		Body:        []byte(text),
	}
}

// ArtifactConfig controls when and where artifacts are captured
type ArtifactConfig struct {
	CaptureOnFailure bool   `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	ScreenshotDir    string `yaml:"screenshotDir" json:"screenshotDir"`       // Default: target/screenshots
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		ScreenshotDir:    "target/screenshots",
	}
}

// ShouldCapture returns true if artifacts should be captured for the given status
func (c ArtifactConfig) ShouldCapture(status StepStatus) bool {
	switch status {
	case StatusFailed, StatusErrored:
		return c.CaptureOnFailure
	default:
		return false
	}
}
