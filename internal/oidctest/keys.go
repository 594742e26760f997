package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-client/jwks"
)

// KeyPair is an RSA signing key with its key ID.
type KeyPair struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// GenerateRSAKeyPair generates a new RSA key pair for RS256 signing
func GenerateRSAKeyPair(keyID string, bits int) (*KeyPair, error) {
	if bits < 2048 {
		bits = 2048
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return &KeyPair{KeyID: keyID, PrivateKey: privateKey}, nil
}

// JWK returns the public half in JWK format.
func (kp *KeyPair) JWK() jwks.JWK {
	return jwks.NewRSAJWK(kp.KeyID, &kp.PrivateKey.PublicKey)
}

// Sign creates an RS256 token with the kid header set.
func (kp *KeyPair) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kp.KeyID

	signed, err := token.SignedString(kp.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// SignHS256 signs claims with a shared secret, for algorithm rejection tests.
func SignHS256(kid string, secret []byte, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(secret)
}
