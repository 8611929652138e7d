package server

import (
	"bytes"
	"encoding/json"
	stdlog "log"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dhnt/tlserve/internal/log"
)

func TestErrorLogWriter(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics()
	w := errorLogWriter{log: log.ConfigLogger(1, zapcore.AddSync(&buf)), metrics: m}
	l := stdlog.New(w, "", 0)

	lines := []string{
		"http: TLS handshake error from 127.0.0.1:50000: tls: first record does not look like a TLS handshake",
		"http: superfluous response.WriteHeader call from example.com/pkg.handler (handler.go:12)",
		"http: Accept error: accept tcp [::]:443: accept4: too many open files; retrying in 5ms",
		"http: TLS handshake error from 127.0.0.1:50001: EOF",
	}
	for _, line := range lines {
		l.Print(line)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.handshakeErrTotal))

	logged := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, logged, len(lines))
	for i, raw := range logged {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &entry), "[%v]", i)
		assert.Equal(t, lines[i], entry["line"], "[%v]", i)
	}
}

func TestErrorLogWriterNilMetrics(t *testing.T) {
	w := errorLogWriter{log: log.ConfigLogger(0, zapcore.AddSync(&bytes.Buffer{}))}
	assert.NotPanics(t, func() {
		line := []byte("http: TLS handshake error from x: EOF\n")
		n, err := w.Write(line)
		assert.NoError(t, err)
		assert.Equal(t, len(line), n)
	})
}
