// Package signer provides the document-signing and credential boundary
// of the harness. Production runs sign through a hardware security
// device; tests use the JWS signer below with a shared HMAC key.
package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ehr/erx-harness/internal/platform/protocol"
)

// CredentialClass selects the signing identity.
type CredentialClass int

const (
	// PrescriberCredential signs clinical documents at issuance.
	PrescriberCredential CredentialClass = iota
	// DispenserCredential signs dispense receipts.
	DispenserCredential
)

func (c CredentialClass) String() string {
	switch c {
	case PrescriberCredential:
		return "prescriber"
	case DispenserCredential:
		return "dispenser"
	default:
		return "unknown"
	}
}

// Signer turns an opaque payload into a signed byte payload. The
// harness never interprets signature contents.
type Signer interface {
	Sign(payload []byte, class CredentialClass) ([]byte, error)
}

// JWSSigner produces compact JWS over a payload digest. It doubles as
// the bearer-token source for the protocol client so the fake backend
// can authenticate calls with the same key.
type JWSSigner struct {
	key    []byte
	issuer string
}

// NewJWSSigner builds a signer around a shared HMAC key.
func NewJWSSigner(key []byte, issuer string) *JWSSigner {
	return &JWSSigner{key: key, issuer: issuer}
}

type documentClaims struct {
	Digest string `json:"digest"`
	Class  string `json:"class"`
	jwt.RegisteredClaims
}

// Sign implements Signer.
func (s *JWSSigner) Sign(payload []byte, class CredentialClass) ([]byte, error) {
	sum := sha256.Sum256(payload)
	claims := documentClaims{
		Digest: hex.EncodeToString(sum[:]),
		Class:  class.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign document: %w", err)
	}
	return []byte(signed), nil
}

type bearerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Bearer implements protocol.TokenSource.
func (s *JWSSigner) Bearer(id protocol.Identity) (string, error) {
	claims := bearerClaims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.Name,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("mint bearer: %w", err)
	}
	return signed, nil
}

// ParseBearer recovers the identity from a bearer credential minted by
// Bearer. The fake backend uses it to attribute requests.
func ParseBearer(key []byte, bearer string) (protocol.Identity, error) {
	var claims bearerClaims
	_, err := jwt.ParseWithClaims(bearer, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return protocol.Identity{}, fmt.Errorf("parse bearer: %w", err)
	}
	return protocol.Identity{Name: claims.Subject, Role: claims.Role}, nil
}
