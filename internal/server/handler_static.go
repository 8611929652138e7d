package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
)

const (
	allowedMethods     = "GET, HEAD"
	indexDocument      = "index.html"
	defaultContentType = "application/octet-stream"
)

// StaticHandler answers GET and HEAD requests with files below a root
// directory.
//
// Directories are served as follows: a request without a trailing slash is
// redirected to the slash form; index.html is served if present; otherwise
// a listing is rendered when listDirs is set, else the answer is 404.
type StaticHandler struct {
	resolver *Resolver
	listDirs bool
	metrics  *Metrics
	log      logr.Logger
}

func NewStaticHandler(root string, listDirs bool, metrics *Metrics, log logr.Logger) (*StaticHandler, error) {
	resolver, err := NewResolver(root)
	if err != nil {
		return nil, err
	}
	return &StaticHandler{
		resolver: resolver,
		listDirs: listDirs,
		metrics:  metrics,
		log:      log.WithName("static"),
	}, nil
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.handle(w, r)
	default:
		methodNotAllowed(w, r, h.log)
	}
}

func (h *StaticHandler) handle(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if p == "" {
		p = "/"
	}

	res := h.resolver.Resolve(p)
	if !res.OK() {
		h.reject(w, r, res)
		return
	}

	if res.Info.IsDir() {
		h.serveDir(w, r, res, strings.HasSuffix(p, "/"))
		return
	}
	if !res.Info.Mode().IsRegular() {
		h.reject(w, r, rejected(res.Name, ReasonNotFound, fmt.Errorf("%s: not a regular file", res.Path)))
		return
	}

	h.serveFile(w, r, res)
}

func (h *StaticHandler) reject(w http.ResponseWriter, r *http.Request, res Resolution) {
	h.metrics.observeRejected(res.Reason)
	notFound(w, r, h.log, res)
}

func (h *StaticHandler) serveDir(w http.ResponseWriter, r *http.Request, res Resolution, slash bool) {
	if !slash {
		// Built from the cleaned name so "//host" can never become a
		// protocol-relative redirect.
		u := url.URL{Path: strings.TrimSuffix(res.Name, "/") + "/", RawQuery: r.URL.RawQuery}
		http.Redirect(w, r, u.RequestURI(), http.StatusMovedPermanently)
		return
	}

	index := h.resolver.Resolve(path.Join(res.Name, indexDocument))
	if index.OK() && index.Info.Mode().IsRegular() {
		h.serveFile(w, r, index)
		return
	}

	if !h.listDirs {
		h.reject(w, r, rejected(res.Name, ReasonNotFound, fmt.Errorf("%s: no %s", res.Path, indexDocument)))
		return
	}
	h.serveListing(w, r, res)
}

func (h *StaticHandler) serveFile(w http.ResponseWriter, r *http.Request, res Resolution) {
	f, err := os.Open(res.Path)
	if err != nil {
		h.reject(w, r, rejected(res.Name, ReasonNotFound, err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType(res.Name))
	w.Header().Set("Etag", etag(res.Info))

	// ServeContent handles HEAD, conditional and range requests and sets
	// Content-Length.
	http.ServeContent(w, r, res.Info.Name(), res.Info.ModTime(), f)
}

// contentType infers the media type from the file extension.
func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return defaultContentType
}

// etag concatenates modification time and size, the heuristic the Apache
// http 2.4 web server uses, with nanosecond granularity.
func etag(fi fs.FileInfo) string {
	return fmt.Sprintf(`"%x%x"`, fi.ModTime().UnixNano(), fi.Size())
}

type listingEntry struct {
	Name string
	Href string
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE HTML>
<html>
<head>
<meta charset="utf-8">
<title>Directory listing for {{.Title}}</title>
</head>
<body>
<h1>Directory listing for {{.Title}}</h1>
<hr>
<ul>
{{- range .Entries}}
<li><a href="{{.Href}}">{{.Name}}</a></li>
{{- end}}
</ul>
<hr>
</body>
</html>
`))

func (h *StaticHandler) serveListing(w http.ResponseWriter, r *http.Request, res Resolution) {
	entries, err := os.ReadDir(res.Path)
	if err != nil {
		internalServerError(w, r, h.log, err)
		return
	}

	list := make([]listingEntry, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		list = append(list, listingEntry{
			Name: name,
			Href: (&url.URL{Path: name}).String(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	data := struct {
		Title   string
		Entries []listingEntry
	}{res.Name, list}
	if err := listingTemplate.Execute(w, data); err != nil {
		h.log.Error(err, "render listing", "path", res.Name)
	}
}
