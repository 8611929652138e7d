package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testCert struct {
	certFile     string
	keyFile      string
	combinedFile string
	pool         *x509.CertPool
}

// writeTestCert creates a self-signed certificate for 127.0.0.1 and
// localhost below dir.
func writeTestCert(t *testing.T, dir string) testCert {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	tc := testCert{
		certFile:     filepath.Join(dir, "cert.crt"),
		keyFile:      filepath.Join(dir, "key.rsa"),
		combinedFile: filepath.Join(dir, "combined.pem"),
		pool:         x509.NewCertPool(),
	}
	require.NoError(t, os.WriteFile(tc.certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(tc.keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(tc.combinedFile, append(append([]byte{}, certPEM...), keyPEM...), 0o600))

	parsed, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	tc.pool.AddCert(parsed)

	return tc
}

// writeTree creates files below dir; keys are slash separated relative
// paths.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
