package server

import (
	"crypto/tls"
	"fmt"
	"os"
)

// TLSFilesExist reports whether both the key and the certificate are
// present on disk
func TLSFilesExist(keyPath, certPath string) bool {
	for _, p := range []string{keyPath, certPath} {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// LoadTLSConfig loads a PEM key pair into a server configuration that
// refuses anything older than TLS 1.2
func LoadTLSConfig(keyPath, certPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
