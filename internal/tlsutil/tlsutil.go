// Package tlsutil provides centralized TLS configuration for outbound
// inference calls and Redis connections in lokingai.
// 安全加固：TLS 1.2+，仅 AEAD 密码套件。
package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// SecureTransport returns an http.Transport with TLS hardening.
// maxConnsPerHost <= 0 leaves the per-host limit unset.
func SecureTransport(maxConnsPerHost int) *http.Transport {
	tr := baseTransport(maxConnsPerHost)
	tr.TLSClientConfig = DefaultTLSConfig()
	return tr
}

func baseTransport(maxConnsPerHost int) *http.Transport {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if maxConnsPerHost > 0 {
		tr.MaxConnsPerHost = maxConnsPerHost
		tr.MaxIdleConnsPerHost = maxConnsPerHost
	}
	return tr
}

// ClientFor returns a client suited to baseURL: hardened TLS for https
// targets, a plain pooled transport otherwise (local model servers, tests).
func ClientFor(baseURL string, timeout time.Duration, maxConnsPerHost int) *http.Client {
	if IsHTTPS(baseURL) {
		return &http.Client{Timeout: timeout, Transport: SecureTransport(maxConnsPerHost)}
	}
	return &http.Client{Timeout: timeout, Transport: baseTransport(maxConnsPerHost)}
}

// IsHTTPS reports whether rawURL uses the https scheme.
func IsHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https")
}
