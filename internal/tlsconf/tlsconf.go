// Package tlsconf builds the server TLS configuration and hot-reloads
// the certificate pair when the files change on disk.
package tlsconf

import (
	"crypto/tls"
	"fmt"

	"github.com/searchsvc/gateway/internal/config"
)

// ALPN protocols offered by the listener, HTTP/2 preferred.
var alpnProtocols = []string{"h2", "http/1.1"}

// modernCipherSuites are the TLS 1.2 suites the listener accepts.
// TLS 1.3 suites are not configurable and always enabled.
var modernCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// ServerConfig builds a tls.Config that serves the provider's current
// certificate. GetCertificate reads an atomic pointer, so handshakes
// never block on a reload.
func ServerConfig(cfg config.TLSConfig, provider *FileProvider) (*tls.Config, error) {
	minVersion, err := parseMinVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		MinVersion:     minVersion,
		CipherSuites:   modernCipherSuites,
		NextProtos:     alpnProtocols,
		GetCertificate: provider.GetCertificate,
	}, nil
}

func parseMinVersion(version string) (uint16, error) {
	switch version {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS min version %q", version)
	}
}
