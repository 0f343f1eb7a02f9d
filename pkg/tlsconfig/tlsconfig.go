// Package tlsconfig builds mTLS configs for the daemon's control socket
// and the CLI that talks to it
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Files names the PEM files of one side of an mTLS connection
type Files struct {
	Cert string
	Key  string
	CA   string
}

// Enabled reports whether a certificate was configured at all
func (f Files) Enabled() bool {
	return f.Cert != ""
}

// Validate checks that a configured certificate comes with its key and CA
func (f Files) Validate() error {
	if !f.Enabled() {
		return nil
	}
	if f.Key == "" || f.CA == "" {
		return errors.New("tls: cert, key and CA must be set together")
	}
	return nil
}

// LoadServerTLS creates a tls.Config for the control server requiring client certs (mTLS)
func LoadServerTLS(f Files) (*tls.Config, error) {
	cert, pool, err := load(f)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadClientTLS creates a tls.Config for a CLI client that presents a cert (mTLS)
func LoadClientTLS(f Files) (*tls.Config, error) {
	cert, pool, err := load(f)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func load(f Files) (tls.Certificate, *x509.CertPool, error) {
	if err := f.Validate(); err != nil {
		return tls.Certificate{}, nil, err
	}

	cert, err := tls.LoadX509KeyPair(f.Cert, f.Key)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("load key pair: %w", err)
	}

	caCert, err := os.ReadFile(f.CA)
	if err != nil {
		return tls.Certificate{}, nil, fmt.Errorf("read CA cert: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return tls.Certificate{}, nil, fmt.Errorf("failed to parse CA certificate")
	}

	return cert, caPool, nil
}
