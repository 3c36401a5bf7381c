package http

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Route describes one endpoint on the docs page.
type Route struct {
	Method      string
	Path        string
	Description string
}

// Routes lists the public endpoints in the order they appear on /docs.
var Routes = []Route{
	{"GET", "/health", "Liveness message"},
	{"GET", "/health/ready", "Readiness with table statistics and connected websocket clients"},
	{"GET", "/getdata/?index=DAX|SP500|ALL", "All entries in pages of 30, newest first"},
	{"GET", "/getdata/{date}?index=DAX&show_all_indices=false", "Values for one YYYYMMDD date"},
	{"GET", "/getdataAll", "Redirect to /getdata/?index=ALL"},
	{"POST", "/uploadfile/", "Merge a CSV upload (multipart field \"file\")"},
	{"GET", "/testdb", "The full table"},
	{"GET", "/refreshdb", "Reset the table to the seed file"},
	{"GET", "/export?format=csv|xlsx", "Download the table"},
	{"GET", "/ws", "WebSocket change feed"},
	{"GET", "/metrics", "Prometheus metrics"},
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Daily Index API</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        table { border-collapse: collapse; }
        td, th { padding: 6px 12px; border-bottom: 1px solid #ddd; text-align: left; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1>Daily Index API</h1>
    <p>Version {{.Version}}</p>
    <table>
        <tr><th>Method</th><th>Path</th><th>Description</th></tr>
        {{range .Routes}}<tr><td>{{.Method}}</td><td><code>{{.Path}}</code></td><td>{{.Description}}</td></tr>
        {{end}}
    </table>
</body>
</html>
`))

// DocsHandler serves the route overview page
type DocsHandler struct {
	version string
}

// NewDocsHandler creates a docs handler
func NewDocsHandler(version string) *DocsHandler {
	return &DocsHandler{version: version}
}

// RegisterRoutes mounts / and /docs on r
func (h *DocsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", RedirectToDocs)
	r.Get("/docs", h.ServeDocs)
}

// RedirectToDocs redirects root requests to the docs page
func RedirectToDocs(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

// ServeDocs renders the route list
func (h *DocsHandler) ServeDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := struct {
		Version string
		Routes  []Route
	}{h.version, Routes}

	if err := docsTemplate.Execute(w, data); err != nil {
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}
