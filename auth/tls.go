package auth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSConfig loads the server's certificate and an optional client-CA pool
// from PEM files. ClientAuth is set to VerifyClientCertIfGiven rather than
// RequireAndVerifyClientCert: SPEC_FULL.md's access model accepts a client
// certificate as an alternative to OIDC only for tree reads, and falls
// through to the public-repo/OIDC checks otherwise, so presenting no
// certificate at the TLS layer must not itself fail the handshake.
func TLSConfig(certFile, keyFile, clientCAFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("auth: load server certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if clientCAFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(clientCAFile)
	if err != nil {
		return nil, fmt.Errorf("auth: read client CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("auth: no certificates found in %s", clientCAFile)
	}
	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.VerifyClientCertIfGiven
	return cfg, nil
}

// HasVerifiedClientCert reports whether verifiedChains (a TLS connection
// state's VerifiedChains) holds at least one chain the server's ClientCAs
// pool verified.
func HasVerifiedClientCert(verifiedChains [][]*x509.Certificate) bool {
	return len(verifiedChains) > 0
}
