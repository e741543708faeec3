package sinks

import "html/template"

const footerText = "This report was automatically processed by the Market Report AI system."

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.header { background-color: #f4f4f4; padding: 20px; border-radius: 5px; }
.section { margin: 20px 0; }
.insights { background-color: #e8f4fd; padding: 15px; border-radius: 5px; }
.risks { background-color: #fff3cd; padding: 15px; border-radius: 5px; }
.action-items { background-color: #d4edda; padding: 15px; border-radius: 5px; }
.scroll { max-height: 300px; overflow-y: auto; border: 1px solid #ddd; padding: 15px; background-color: #f9f9f9; }
ul { padding-left: 20px; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #666; }
</style>
</head>
<body>
<div class="header">
<h1>📊 {{.Title}}</h1>
{{if .SourceURL}}<p><strong>Source:</strong> <a href="{{.SourceURL}}">{{.SourceURL}}</a></p>{{end}}
<p><strong>Processed:</strong> {{.Processed}}</p>
{{if .Sentiment}}<p><strong>Sentiment:</strong> {{.Sentiment}} &middot; <strong>Confidence:</strong> {{.Confidence}}</p>{{end}}
</div>

<div class="section">
<h2>📝 Executive Summary</h2>
<p>{{.Summary}}</p>
</div>
{{if .Insights}}
<div class="section insights">
<h2>💡 Key Insights</h2>
<ul>{{range .Insights}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}{{if .Outlook}}
<div class="section">
<h2>🔮 Market Outlook</h2>
<p>{{.Outlook}}</p>
</div>
{{end}}{{if .Risks}}
<div class="section risks">
<h2>⚠️ Risk Factors</h2>
<ul>{{range .Risks}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}{{if .Actions}}
<div class="section action-items">
<h2>✅ Action Items</h2>
<ul>{{range .Actions}}<li>{{.}}</li>{{end}}</ul>
</div>
{{end}}{{if .OriginalHTML}}
<div class="section">
<h2>📄 Original Report</h2>
<div class="scroll">{{.OriginalHTML}}</div>
</div>
{{end}}{{if .TranslatedHTML}}
<div class="section">
<h2>📄 Full Report (Translated)</h2>
<div class="scroll">{{.TranslatedHTML}}</div>
</div>
{{end}}
<div class="footer">
<p>{{.Footer}}</p>
</div>
</body>
</html>
`))

type emailView struct {
	Title          string
	SourceURL      string
	Processed      string
	Sentiment      string
	Confidence     string
	Summary        string
	Insights       []string
	Outlook        string
	Risks          []string
	Actions        []string
	OriginalHTML   template.HTML // Already sanitized
	TranslatedHTML template.HTML // Rendered from markdown with raw HTML disabled
	Footer         string
}
