// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// tokenTTL bounds how long a webhook bearer token stays valid.
const tokenTTL = 5 * time.Minute

// Signer mints short-lived ES256 bearer tokens for outbound webhook calls.
type Signer struct {
	key jwk.Key
	kid string
}

// NewSigner generates an ephemeral P-256 key pair under the given key ID.
func NewSigner(kid string) (*Signer, error) {
	if kid == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return NewSignerFromKey(kid, privateKey)
}

// NewSignerFromKey wraps an existing ECDSA private key.
func NewSignerFromKey(kid string, privateKey *ecdsa.PrivateKey) (*Signer, error) {
	if kid == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	if privateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	key, err := jwk.Import(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to import private key: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	return &Signer{key: key, kid: kid}, nil
}

// KeyID returns the signer's key ID.
func (s *Signer) KeyID() string {
	return s.kid
}

// PublicKey returns the verification half of the signing key.
func (s *Signer) PublicKey() (jwk.Key, error) {
	pub, err := s.key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	return pub, nil
}

// Sign mints a bearer token valid from now for [tokenTTL].
func (s *Signer) Sign(now time.Time) (string, error) {
	token, err := jwt.NewBuilder().
		Issuer("sniffbot").
		Subject("smell-of-the-week").
		JwtID(uuid.NewString()).
		IssuedAt(now).
		Expiration(now.Add(tokenTTL)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), s.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}
