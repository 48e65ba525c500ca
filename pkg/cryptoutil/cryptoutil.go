// Package cryptoutil is a stateless symmetric encrypt/decrypt helper,
// independent of the detection pipeline. It uses XChaCha20-Poly1305
// with a fresh random nonce per call, embedded in the envelope; nonce
// reuse under one key breaks confidentiality, so a failed random read
// aborts the call instead of degrading.
package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope layout, base64url-encoded: version byte, 24-byte nonce,
// ciphertext with the 16-byte Poly1305 tag appended.
const envelopeVersion = 0x01

var (
	// ErrAuthentication means the tag did not verify: wrong key or a
	// tampered envelope. Never retried, never returns partial plaintext.
	ErrAuthentication = errors.New("cryptoutil: authentication failed")
	// ErrMalformedEnvelope means the envelope could not be parsed.
	ErrMalformedEnvelope = errors.New("cryptoutil: malformed envelope")
)

// deriveKey maps an arbitrary-length secret onto the cipher's 32-byte
// key space.
func deriveKey(key []byte) [32]byte {
	return sha256.Sum256(key)
}

// Encrypt seals plaintext under key and returns the printable envelope.
func Encrypt(plaintext, key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("cryptoutil: empty key")
	}

	derived := deriveKey(key)
	aead, err := chacha20poly1305.NewX(derived[:])
	if err != nil {
		return "", fmt.Errorf("cryptoutil: init cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptoutil: nonce generation failed: %w", err)
	}

	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, envelopeVersion)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens an envelope produced by Encrypt. It returns
// ErrMalformedEnvelope when the envelope cannot be parsed and
// ErrAuthentication when the tag does not verify; corrupted plaintext is
// never returned silently.
func Decrypt(envelope string, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("cryptoutil: empty key")
	}

	raw, err := base64.RawURLEncoding.DecodeString(envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: envelope too short", ErrMalformedEnvelope)
	}
	if raw[0] != envelopeVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedEnvelope, raw[0])
	}

	derived := deriveKey(key)
	aead, err := chacha20poly1305.NewX(derived[:])
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: init cipher: %w", err)
	}

	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := raw[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
