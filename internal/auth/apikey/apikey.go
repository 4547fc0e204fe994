// Package apikey guards operator endpoints with static API keys. Only the
// SHA-256 digests of the keys are configured; presented keys are hashed and
// compared in constant time.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingKey = errors.New("missing api key")
	ErrInvalidKey = errors.New("invalid api key")
)

// Validator checks presented keys against a fixed set of digests.
type Validator struct {
	digests [][]byte
}

// NewValidator parses hex-encoded SHA-256 digests as produced by HashKey.
// An empty list yields a validator that is not Enabled.
func NewValidator(hexDigests []string) (*Validator, error) {
	v := &Validator{}
	for i, h := range hexDigests {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		d, err := hex.DecodeString(h)
		if err != nil || len(d) != sha256.Size {
			return nil, fmt.Errorf("admin key digest %d is not a hex sha-256 digest", i)
		}
		v.digests = append(v.digests, d)
	}
	return v, nil
}

// Enabled reports whether any key is configured.
func (v *Validator) Enabled() bool { return len(v.digests) > 0 }

// Validate returns nil if raw hashes to one of the configured digests.
func (v *Validator) Validate(raw string) error {
	if raw == "" {
		return ErrMissingKey
	}
	sum := sha256.Sum256([]byte(raw))
	ok := 0
	for _, d := range v.digests {
		ok |= subtle.ConstantTimeCompare(sum[:], d)
	}
	if ok != 1 {
		return ErrInvalidKey
	}
	return nil
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateKey returns a random 32-byte hex-encoded key.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
