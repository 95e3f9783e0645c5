package sessions

import (
	"html/template"
	"net/http"
)

type welcomeData struct {
	Domain string
	Errors []string
}

type successData struct {
	Profile string
}

type failureData struct {
	Error   string
	Message string
}

const layout = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>dummyauth</title>
  </head>
  <body>
    {{ template "content" . }}
  </body>
</html>
`

var (
	welcomeTmpl = page(`{{ define "content" }}
    <form action="/" method="post">
      <label for="domain">Your domain:</label>
      <input id="domain" name="domain" value="{{ .Domain }}" placeholder="e.g. https://example.com" />
      <button type="submit">Sign-in</button>
      {{ range .Errors }}<p class="error">{{ . }}</p>{{ end }}
    </form>
{{ end }}`)

	successTmpl = page(`{{ define "content" }}
    <p>Signed in as <a href="{{ .Profile }}">{{ .Profile }}</a></p>
    <form action="/logout" method="post">
      <button type="submit">Sign-out</button>
    </form>
{{ end }}`)

	failureTmpl = page(`{{ define "content" }}
    <h1>Could not sign in</h1>
    <p class="error">{{ .Error }}</p>
    {{ if .Message }}<p class="message">{{ .Message }}</p>{{ end }}
    <a href="/">Try again</a>
{{ end }}`)
)

func page(content string) *template.Template {
	return template.Must(template.Must(template.New("layout").Parse(layout)).Parse(content))
}

func (s *Sessions) render(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("could not render page", "template", tmpl.Name(), "error", err)
	}
}
