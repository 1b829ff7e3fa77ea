package jwtutil

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrKeyNotConfigured = errors.New("jwt private key not configured")

// LoadPrivateKey parses an inline PEM, falling back to reading path.
func LoadPrivateKey(inlinePEM, path string) (*rsa.PrivateKey, error) {
	pem := strings.TrimSpace(inlinePEM)
	if pem == "" && strings.TrimSpace(path) != "" {
		// #nosec G304 -- path is provided by operator configuration.
		buf, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		pem = string(buf)
	}
	if pem == "" {
		return nil, ErrKeyNotConfigured
	}
	return jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
}

// GenerateEphemeralKey returns a throwaway signing key. Tokens signed with it
// do not survive a restart.
func GenerateEphemeralKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}
