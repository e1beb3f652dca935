package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// RequestSigner produces the authentication signature for one request. The
// message signed is timestamp + method + path.
type RequestSigner interface {
	KeyID() string
	Sign(timestamp, method, path string) (string, error)
}

// RSASigner signs requests with RSA-PSS-SHA256, the scheme the exchange
// requires for API key authentication.
type RSASigner struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewRSASigner parses a PEM-encoded RSA private key (PKCS#8, with PKCS#1
// fallback) and returns a signer for the given API key ID.
func NewRSASigner(keyID string, pemBytes []byte) (*RSASigner, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in private key", domain.ErrSigningFailed)
	}

	var rsaKey *rsa.PrivateKey
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return nil, fmt.Errorf("%w: parse private key: %v (pkcs1: %v)",
				domain.ErrSigningFailed, err, pkcs1Err)
		}
		rsaKey = pkcs1Key
	} else {
		var ok bool
		rsaKey, ok = key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: expected RSA private key, got %T",
				domain.ErrSigningFailed, key)
		}
	}

	return &RSASigner{keyID: keyID, key: rsaKey}, nil
}

// KeyID returns the API key identifier to send alongside signatures.
func (s *RSASigner) KeyID() string { return s.keyID }

// Sign returns the base64 RSA-PSS signature of timestamp + method + path.
func (s *RSASigner) Sign(timestamp, method, path string) (string, error) {
	hash := sha256.Sum256([]byte(timestamp + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
