package tlsconf

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchsvc/gateway/internal/config"
)

// writeCertPair writes a fresh self-signed pair and returns the paths.
func writeCertPair(t *testing.T, dir, commonName string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "tls.crt")
	keyFile = filepath.Join(dir, "tls.key")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))

	return certFile, keyFile
}

func TestFileProviderLoads(t *testing.T) {
	t.Parallel()

	certFile, keyFile := writeCertPair(t, t.TempDir(), "gateway-test")

	p, err := NewFileProvider(certFile, keyFile)
	require.NoError(t, err)

	cert, err := p.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)
	assert.Equal(t, "gateway-test", cert.Leaf.Subject.CommonName)
}

func TestFileProviderMissingFiles(t *testing.T) {
	t.Parallel()

	_, err := NewFileProvider("/nonexistent/tls.crt", "/nonexistent/tls.key")
	assert.Error(t, err)
}

func TestFileProviderReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir, "first")

	p, err := NewFileProvider(certFile, keyFile, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, p.Watch())
	t.Cleanup(func() { _ = p.Close() })

	writeCertPair(t, dir, "second")

	require.Eventually(t, func() bool {
		cert, err := p.GetCertificate(&tls.ClientHelloInfo{})
		return err == nil && cert.Leaf != nil && cert.Leaf.Subject.CommonName == "second"
	}, 5*time.Second, 20*time.Millisecond, "certificate swaps after file change")
}

func TestFileProviderReloadFailureKeepsPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	certFile, keyFile := writeCertPair(t, dir, "good")

	p, err := NewFileProvider(certFile, keyFile, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, p.Watch())
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))

	// Give the watcher time to attempt (and fail) the reload.
	time.Sleep(200 * time.Millisecond)

	cert, err := p.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)
	assert.Equal(t, "good", cert.Leaf.Subject.CommonName)
}

func TestServerConfig(t *testing.T) {
	t.Parallel()

	certFile, keyFile := writeCertPair(t, t.TempDir(), "gateway")
	p, err := NewFileProvider(certFile, keyFile)
	require.NoError(t, err)

	cfg, err := ServerConfig(config.TLSConfig{Enabled: true}, p)
	require.NoError(t, err)

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Equal(t, []string{"h2", "http/1.1"}, cfg.NextProtos)
	require.NotNil(t, cfg.GetCertificate)

	cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotNil(t, cert)
}

func TestServerConfigMinVersion(t *testing.T) {
	t.Parallel()

	certFile, keyFile := writeCertPair(t, t.TempDir(), "gateway")
	p, err := NewFileProvider(certFile, keyFile)
	require.NoError(t, err)

	cfg, err := ServerConfig(config.TLSConfig{MinVersion: "1.3"}, p)
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)

	_, err = ServerConfig(config.TLSConfig{MinVersion: "1.0"}, p)
	assert.Error(t, err)
}
