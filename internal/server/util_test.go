package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestErrorResponses(t *testing.T) {
	log := logr.Discard()

	tests := []struct {
		write  func(w http.ResponseWriter, r *http.Request)
		code   int
		header string
		value  string
	}{
		{func(w http.ResponseWriter, r *http.Request) {
			notFound(w, r, log, rejected("/x", ReasonTraversal, nil))
		}, http.StatusNotFound, "", ""},
		{func(w http.ResponseWriter, r *http.Request) {
			methodNotAllowed(w, r, log)
		}, http.StatusMethodNotAllowed, "Allow", "GET, HEAD"},
		{func(w http.ResponseWriter, r *http.Request) {
			tooManyRequests(w, r, log)
		}, http.StatusTooManyRequests, "Retry-After", "1"},
		{func(w http.ResponseWriter, r *http.Request) {
			internalServerError(w, r, log, errors.New("/srv/www/private: permission denied"))
		}, http.StatusInternalServerError, "", ""},
	}

	for i, tc := range tests {
		w := httptest.NewRecorder()
		tc.write(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, tc.code, w.Code, "[%v]", i)
		if tc.header != "" {
			assert.Equal(t, tc.value, w.Header().Get(tc.header), "[%v]", i)
		}
		// Reasons and filesystem paths stay in the log.
		assert.NotContains(t, w.Body.String(), "traversal", "[%v]", i)
		assert.NotContains(t, w.Body.String(), "/srv/www", "[%v]", i)
	}
}

func TestErrString(t *testing.T) {
	assert.Equal(t, "", errString(nil))
	assert.Equal(t, "boom", errString(errors.New("boom")))
}
