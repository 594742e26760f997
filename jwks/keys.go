package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"

	"github.com/pkg/errors"
)

// RS256 is the only signing algorithm accepted for identity tokens.
const RS256 = "RS256"

// JWKS represents a JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kty string   `json:"kty"`           // Key type (RSA, EC)
	Use string   `json:"use,omitempty"` // sig or enc
	Kid string   `json:"kid,omitempty"` // Key ID
	Alg string   `json:"alg,omitempty"` // Algorithm
	N   string   `json:"n,omitempty"`   // Modulus
	E   string   `json:"e,omitempty"`   // Exponent
	X5C []string `json:"x5c,omitempty"` // Certificate chain, ignored
}

// RSAPublicKey decodes the modulus and exponent of an RSA key.
func (k JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, errors.Errorf("[JWK.RSAPublicKey] unsupported key type %q", k.Kty)
	}
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, errors.Wrap(err, "[JWK.RSAPublicKey] decoding modulus")
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, errors.Wrap(err, "[JWK.RSAPublicKey] decoding exponent")
	}
	exponent := new(big.Int).SetBytes(e)
	if len(n) == 0 || !exponent.IsInt64() || exponent.Int64() < 3 {
		return nil, errors.New("[JWK.RSAPublicKey] invalid key material")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exponent.Int64())}, nil
}

// NewRSAJWK converts an RSA public key to JWK format.
func NewRSAJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: RS256,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
