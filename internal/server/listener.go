package server

import (
	"bytes"
	"crypto/tls"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

const keepAlivePeriod = 3 * time.Minute

// loadCertificate reads the PEM certificate and key. An empty keyFile
// means certFile is a combined PEM holding both.
func loadCertificate(certFile, keyFile string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, &ConfigError{Field: "certFile", Err: err}
	}
	keyPEM := certPEM
	if keyFile != "" {
		if keyPEM, err = os.ReadFile(keyFile); err != nil {
			return tls.Certificate{}, &ConfigError{Field: "keyFile", Err: err}
		}
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, &ConfigError{Field: "keyPair", Err: err}
	}
	return cert, nil
}

func newTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"http/1.1"},
	}
}

// listen binds addr and optionally wraps it in TLS.
func listen(addr string, config *tls.Config, log logr.Logger) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	var ln net.Listener = tcpKeepAliveListener{TCPListener: l.(*net.TCPListener), log: log}
	if config != nil {
		ln = tls.NewListener(ln, config)
	}
	return ln, nil
}

// tcpKeepAliveListener sets TCP keep-alive timeouts on accepted
// connections so dead peers eventually go away.
type tcpKeepAliveListener struct {
	*net.TCPListener
	log logr.Logger
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err := tc.SetKeepAlive(true); err != nil {
		ln.log.V(1).Info("set keep-alive", "err", err.Error())
	}
	if err := tc.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
		ln.log.V(1).Info("set keep-alive period", "err", err.Error())
	}
	return tc, nil
}

// handshakeErrorPrefix starts the line net/http logs for a failed TLS
// handshake.
const handshakeErrorPrefix = "http: TLS handshake error"

// errorLogWriter receives the messages net/http prints through
// http.Server.ErrorLog. None of them stop the server; only failed
// handshakes are counted.
type errorLogWriter struct {
	log     logr.Logger
	metrics *Metrics
}

func (w errorLogWriter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimSpace(p))
	if strings.HasPrefix(msg, handshakeErrorPrefix) {
		w.metrics.observeHandshakeError()
		w.log.V(1).Info("connection error", "line", msg)
		return len(p), nil
	}
	w.log.Info("http server", "line", msg)
	return len(p), nil
}
