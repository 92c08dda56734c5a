package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/shopcheck/pkg/core"
)

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Result        core.SuiteResult
	Scenarios     []ScenarioHTMLData
	TotalDuration string
	PassRate      float64
}

// ScenarioHTMLData is a scenario formatted for HTML.
type ScenarioHTMLData struct {
	core.ScenarioResult
	StatusClass string
	DurationStr string
	Screenshots []template.URL
	Logs        []string
}

// GenerateHTML writes report.html for r into dir.
func GenerateHTML(dir string, r core.SuiteResult) error {
	data := buildHTMLData(r)

	var buf bytes.Buffer
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.html"), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

func buildHTMLData(r core.SuiteResult) HTMLData {
	scenarios := make([]ScenarioHTMLData, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		d := ScenarioHTMLData{
			ScenarioResult: sc,
			StatusClass:    statusClass(sc.Status),
			DurationStr:    formatDuration(sc.Duration),
		}
		for _, att := range sc.Attachments {
			if att.ContentType == core.ContentTypeText && att.Text != "" {
				d.Logs = append(d.Logs, att.Text)
				continue
			}
			if att.ContentType != core.ContentTypePNG {
				continue
			}
			if uri := loadAsBase64(att); uri != "" {
				d.Screenshots = append(d.Screenshots, template.URL(uri))
			}
		}
		scenarios[i] = d
	}

	var passRate float64
	if r.TotalScenarios > 0 {
		passRate = float64(r.PassedScenarios) / float64(r.TotalScenarios) * 100
	}

	title := r.Name
	if title == "" {
		title = "Test Report"
	}
	return HTMLData{
		Title:         title,
		GeneratedAt:   time.Now().Format(time.RFC1123),
		Result:        r,
		Scenarios:     scenarios,
		TotalDuration: formatDuration(r.Duration),
		PassRate:      passRate,
	}
}

func statusClass(s core.StepStatus) string {
	switch s {
	case core.StatusPassed:
		return "passed"
	case core.StatusFailed, core.StatusErrored:
		return "failed"
	default:
		return "skipped"
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// loadAsBase64 returns a data URI for the attachment, reading the file
// when the body was not kept in memory.
func loadAsBase64(att core.Attachment) string {
	data := att.Body
	if len(data) == 0 && att.Path != "" {
		var err error
		data, err = os.ReadFile(att.Path)
		if err != nil {
			return ""
		}
	}
	if len(data) == 0 {
		return ""
	}
	mimeType := att.ContentType
	if ext := strings.ToLower(filepath.Ext(att.Path)); ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-secondary: #f9fafb;
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --failed: #ef4444;
            --skipped: #eab308;
        }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; }
        .header { background: var(--bg-secondary); border-bottom: 1px solid var(--border-color); padding: 16px 24px; }
        .summary span { margin-right: 16px; }
        .scenario { border-bottom: 1px solid var(--border-color); padding: 12px 24px; }
        .status { font-weight: 600; text-transform: uppercase; }
        .passed .status { color: var(--passed); }
        .failed .status { color: var(--failed); }
        .skipped .status { color: var(--skipped); }
        .error { font-family: monospace; white-space: pre-wrap; color: var(--failed); }
        .log { white-space: pre-wrap; font-size: 12px; margin-top: 8px; }
        .shot { max-width: 640px; border: 1px solid var(--border-color); margin-top: 8px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        <div class="summary">
            <span>Run {{.Result.RunID}}</span>
            <span>{{.Result.TotalScenarios}} scenarios</span>
            <span>{{.Result.PassedScenarios}} passed</span>
            <span>{{.Result.FailedScenarios}} failed</span>
            <span>{{.Result.SkippedScenarios}} skipped</span>
            <span>{{printf "%.0f" .PassRate}}% pass rate</span>
            <span>{{.TotalDuration}}</span>
        </div>
        <small>Generated {{.GeneratedAt}}</small>
    </div>
    {{range .Scenarios}}
    <div class="scenario {{.StatusClass}}">
        <div><span class="status">{{.Status}}</span> {{.Name}} <small>{{.DurationStr}}</small></div>
        {{if .URI}}<small>{{.URI}}</small>{{end}}
        {{if .FailedStep}}<div>Failed at: {{.FailedStep}}</div>{{end}}
        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
        {{range .Logs}}<pre class="log">{{.}}</pre>{{end}}
        {{range .Screenshots}}<img class="shot" src="{{.}}" alt="Screenshot on Failure">{{end}}
    </div>
    {{end}}
</body>
</html>
`
