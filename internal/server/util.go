package server

import (
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
)

func internalServerError(w http.ResponseWriter, r *http.Request, log logr.Logger, err error) {
	http.Error(w, "internal server error", http.StatusInternalServerError)

	log.Error(err, "internal server error", "method", r.Method, "path", r.URL.Path)
}

// notFound never tells the client why a path was rejected; the reason
// only goes to the log.
func notFound(w http.ResponseWriter, r *http.Request, log logr.Logger, res Resolution) {
	http.Error(w, "404 page not found", http.StatusNotFound)

	log.V(1).Info("not found", "path", r.URL.Path, "reason", res.Reason, "err", errString(res.Err))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, log logr.Logger) {
	w.Header().Set("Allow", allowedMethods)
	s := fmt.Sprintf("method not allowed: %q", r.Method)
	http.Error(w, s, http.StatusMethodNotAllowed)

	log.V(1).Info("method not allowed", "method", r.Method, "path", r.URL.Path)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, log logr.Logger) {
	w.Header().Set("Retry-After", "1")
	http.Error(w, "too many requests", http.StatusTooManyRequests)

	log.V(1).Info("rate limited", "method", r.Method, "path", r.URL.Path)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
