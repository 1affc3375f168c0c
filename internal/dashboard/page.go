package dashboard

import (
	"fmt"
	"html/template"
	"io"
)

// FormData is the input form state.
type FormData struct {
	CSRFToken string
	ChannelID string
	Warning   string // blocking prompt shown above the form
	Action    string // follow-up hint for Warning
}

// PageData is the dashboard page state.
type PageData struct {
	Form FormData
	View *View
}

var pageTemplates = template.Must(template.New("dashboard").Parse(layoutTemplate))

// RenderForm writes the input page.
func RenderForm(w io.Writer, form FormData) error {
	if err := pageTemplates.ExecuteTemplate(w, "form-page", PageData{Form: form}); err != nil {
		return fmt.Errorf("render form: %w", err)
	}
	return nil
}

// RenderPage writes the dashboard page for data.View.
func RenderPage(w io.Writer, data PageData) error {
	if err := pageTemplates.ExecuteTemplate(w, "dashboard-page", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

const layoutTemplate = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:0 auto;max-width:1100px;padding:1rem;color:#222}
.metrics{display:flex;gap:1rem;flex-wrap:wrap}
.metric{border:1px solid #ddd;border-radius:6px;padding:.75rem 1rem;min-width:10rem}
.metric b{display:block;font-size:1.4rem}
.warning{background:#fff4e5;border:1px solid #f0a040;padding:.75rem;border-radius:6px}
table{border-collapse:collapse;width:100%}
td,th{border-bottom:1px solid #eee;padding:.4rem;text-align:left;vertical-align:top}
iframe{border:0;width:100%;height:6200px}
</style>
</head>
<body>
{{end}}

{{define "form"}}
<form method="post" action="/analyze">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<label>YouTube API key <input type="password" name="api_key" autocomplete="off"></label>
<label>Channel ID <input type="text" name="channel_id" value="{{.ChannelID}}"></label>
<button type="submit">Analyze</button>
</form>
{{if .Warning}}<p class="warning" role="alert">{{.Warning}}{{if .Action}}<br><small>{{.Action}}</small>{{end}}</p>{{end}}
{{end}}

{{define "form-page"}}{{template "head" "YouTube Channel Analysis"}}
<h1>YouTube Channel Analysis</h1>
<p>Enter an API key and a channel ID to analyze the channel's uploads.</p>
{{template "form" .Form}}
</body></html>
{{end}}

{{define "dashboard-page"}}{{with .View}}{{template "head" .Channel.Name}}
<h1>{{.Channel.Name}}</h1>
<div class="metrics">
<div class="metric">Subscribers<b>{{.Channel.Subscribers}}</b></div>
<div class="metric">Total Videos<b>{{.Channel.Videos}}</b></div>
<div class="metric">Total Views<b>{{.Channel.Views}}</b></div>
</div>
{{if .Empty}}
<p>No videos found</p>
{{else}}
<form method="get" action="/dashboard/{{.SessionID}}">
<label>From video <input type="number" name="from" min="0" max="{{.LastIndex}}" value="{{.From}}"></label>
<label>To video <input type="number" name="to" min="0" max="{{.LastIndex}}" value="{{.To}}"></label>
<button type="submit">Filter</button>
</form>
<p>From: <b>{{.FromDate}}</b> To: <b>{{.ToDate}}</b> ({{len .Records}} of {{.Total}} videos)</p>
<h2>From Filtered Videos:</h2>
<div class="metrics">
<div class="metric">Average Views<b>{{.Averages.Views}}</b></div>
<div class="metric">Average Likes<b>{{.Averages.Likes}}</b></div>
<div class="metric">Average Comments<b>{{.Averages.Comments}}</b></div>
</div>
<ul><li><b>It looks like {{.Insight.TopPercent}}% of the top viewed videos have the most likes and {{.Insight.BottomPercent}}% of the bottom viewed videos have the least likes.</b></li></ul>
<h2>Latest uploads</h2>
<table>
<tr><th>Published</th><th>Title</th><th>Views</th><th>Likes</th></tr>
{{range .Recent}}<tr><td>{{.Published}}</td><td>{{.Title}}<br><small>{{.Excerpt}}</small></td><td>{{.Views}}</td><td>{{.Likes}}</td></tr>
{{end}}</table>
<p><a href="/dashboard/{{.SessionID}}/report.png?from={{.From}}&amp;to={{.To}}">Download views chart (PNG)</a> · <a href="/api/sessions/{{.SessionID}}/videos">Raw data (JSON)</a></p>
<iframe src="/dashboard/{{.SessionID}}/charts?from={{.From}}&amp;to={{.To}}" title="charts"></iframe>
{{end}}
{{end}}
<h2>Analyze another channel</h2>
{{template "form" .Form}}
</body></html>
{{end}}
`

// LastIndex is the largest selectable window index.
func (v *View) LastIndex() int {
	return v.Total - 1
}
