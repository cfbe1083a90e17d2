package api

import (
	"html/template"
	"net/http"

	"github.com/quorumsec/remedia/pkg/domain"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
</head>
<body>
  <p>
    <a href="/platform/">Platform Home</a> |
    <a href="/platform/incidents">View Incidents</a> |
    <a href="/platform/incidents/new">Create Incident</a>
  </p>
  <h1>{{.Title}}</h1>
{{template "body" .}}
</body>
</html>`))

var homeTemplate = template.Must(template.Must(pageTemplate.Clone()).Parse(`{{define "body"}}
  <h2>Identity Risk Response &amp; Control Platform</h2>
  <p>Assume compromise, understand impact, act safely, prove what happened.</p>
  <h2>Primary Actions</h2>
  <p>
    <a href="/platform/incidents">View Incidents</a><br />
    <a href="/platform/incidents/new">Create Incident</a>
  </p>
  <h2>API</h2>
  <ul>
    <li><code>POST /api/incidents</code></li>
    <li><code>GET /api/incidents/{id}/blast-radius</code></li>
    <li><code>GET /api/recommendations</code></li>
    <li><code>POST /api/incidents/{id}/approvals</code></li>
    <li><code>POST /api/orchestrator/run</code></li>
  </ul>
{{end}}`))

var incidentsTemplate = template.Must(template.Must(pageTemplate.Clone()).Parse(`{{define "body"}}
{{if .Incidents}}
  <table border="1" cellpadding="6">
    <tr><th>incident_id</th><th>identity_ref</th><th>status</th><th>source</th><th>created_at</th></tr>
{{range .Incidents}}    <tr>
      <td><a href="/api/incidents/{{.IncidentID}}">{{.IncidentID}}</a></td>
      <td>{{.IdentityRef}}</td>
      <td>{{.Status}}</td>
      <td>{{.Source}}</td>
      <td>{{.CreatedAt.Format "2006-01-02 15:04:05Z07:00"}}</td>
    </tr>
{{end}}  </table>
{{else}}
  <p>No incidents.</p>
{{end}}
{{end}}`))

var newIncidentTemplate = template.Must(template.Must(pageTemplate.Clone()).Parse(`{{define "body"}}
  <form method="post" action="/api/incidents">
    <p>
      <label>identity_ref<br />
        <input type="text" name="identity_ref" size="60" />
      </label>
    </p>
    <p>
      <label>assumption<br />
        <textarea name="assumption" rows="6" cols="60"></textarea>
      </label>
    </p>
    <p>
      <label>source<br />
        <select name="source">
          <option value="manual">manual</option>
          <option value="api">api</option>
          <option value="soc_tool">soc_tool</option>
        </select>
      </label>
    </p>
    <p><button type="submit">Create incident</button></p>
  </form>
{{end}}`))

type pageData struct {
	Title     string
	Incidents []domain.Incident
}

func renderPage(w http.ResponseWriter, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "page", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	renderPage(w, homeTemplate, pageData{Title: "Platform Home"})
}

func (s *Server) handleIncidentsPage(w http.ResponseWriter, r *http.Request) {
	incidents, err := s.incidents.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	renderPage(w, incidentsTemplate, pageData{Title: "Incident List", Incidents: incidents})
}

func (s *Server) handleNewIncidentPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, newIncidentTemplate, pageData{Title: "New Incident"})
}
