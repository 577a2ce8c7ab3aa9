// Package apikey parses, issues and verifies partner API keys of the form
// pk_{demo|live}_{slug}_{secret}.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Mode distinguishes sandbox keys from production keys.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

const (
	prefix = "pk"

	minSecretLen = 16
	// bcrypt ignores input past 72 bytes
	maxSecretLen = 72

	secretBytes = 24
)

var (
	// ErrMalformed is returned for keys that do not follow the key grammar.
	ErrMalformed = errors.New("malformed api key")

	slugPattern   = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)
	secretPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// Key is a parsed API key.
type Key struct {
	Mode   Mode
	Slug   string
	Secret string
}

// String renders the key in its wire form.
func (k Key) String() string {
	return strings.Join([]string{prefix, string(k.Mode), k.Slug, k.Secret}, "_")
}

// Parse validates the raw key and splits it into its parts.
func Parse(raw string) (Key, error) {
	parts := strings.Split(raw, "_")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("%w: expected 4 segments, got %d", ErrMalformed, len(parts))
	}
	if parts[0] != prefix {
		return Key{}, fmt.Errorf("%w: bad prefix", ErrMalformed)
	}

	mode := Mode(parts[1])
	if mode != ModeDemo && mode != ModeLive {
		return Key{}, fmt.Errorf("%w: unknown mode %q", ErrMalformed, parts[1])
	}
	if !ValidSlug(parts[2]) {
		return Key{}, fmt.Errorf("%w: bad account slug", ErrMalformed)
	}

	secret := parts[3]
	if len(secret) < minSecretLen || len(secret) > maxSecretLen || !secretPattern.MatchString(secret) {
		return Key{}, fmt.Errorf("%w: bad secret", ErrMalformed)
	}

	return Key{Mode: mode, Slug: parts[2], Secret: secret}, nil
}

// ValidSlug reports whether s can be used as an account slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Generate issues a new random key for the account slug.
func Generate(mode Mode, slug string) (Key, error) {
	if mode != ModeDemo && mode != ModeLive {
		return Key{}, fmt.Errorf("unknown mode %q", mode)
	}
	if !ValidSlug(slug) {
		return Key{}, fmt.Errorf("invalid slug %q", slug)
	}

	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return Key{}, fmt.Errorf("generate secret: %w", err)
	}
	return Key{Mode: mode, Slug: slug, Secret: hex.EncodeToString(b)}, nil
}

// HashSecret hashes the secret part of a key for storage.
func HashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// CompareSecret reports whether secret matches the stored hash.
func CompareSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
