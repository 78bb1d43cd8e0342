// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/tomtom215/beestat/internal/models"
)

// Token encryption errors
var (
	// ErrDecryptionFailed indicates the decryption operation failed.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidCiphertext indicates the ciphertext is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// encryptedPrefix marks sealed values so rows written before encryption was
// enabled still read back.
const encryptedPrefix = "enc:v1:"

const tokenKeyContext = "beestat-oauth-token-encryption"

// TokenEncryptor seals OAuth access and refresh tokens with AES-GCM. The
// AES key is derived from the configured master key with HKDF-SHA256.
//
// A nil *TokenEncryptor is valid and passes values through unchanged.
type TokenEncryptor struct {
	aead cipher.AEAD
}

// NewTokenEncryptor creates an encryptor from a base64 master key. An empty
// key disables encryption and returns nil.
func NewTokenEncryptor(masterKey string) (*TokenEncryptor, error) {
	if masterKey == "" {
		return nil, nil
	}

	secret, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(secret) < 32 {
		return nil, errors.New("master key must be at least 32 bytes")
	}

	key, err := deriveKey(secret, []byte(tokenKeyContext), 32)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM cipher: %w", err)
	}
	return &TokenEncryptor{aead: aead}, nil
}

// deriveKey derives a key using HKDF-SHA256.
func deriveKey(secret, info []byte, keyLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, info)
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Enabled reports whether values are actually encrypted.
func (e *TokenEncryptor) Enabled() bool {
	return e != nil && e.aead != nil
}

// Encrypt seals plaintext. Empty strings are returned as-is.
func (e *TokenEncryptor) Encrypt(plaintext string) (string, error) {
	if !e.Enabled() || plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the encrypted
// prefix are returned unchanged.
func (e *TokenEncryptor) Decrypt(value string) (string, error) {
	if len(value) < len(encryptedPrefix) || value[:len(encryptedPrefix)] != encryptedPrefix {
		return value, nil
	}
	if !e.Enabled() {
		return "", fmt.Errorf("%w: value is encrypted but no key is configured", ErrDecryptionFailed)
	}

	data, err := base64.StdEncoding.DecodeString(value[len(encryptedPrefix):])
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrInvalidCiphertext)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize+e.aead.Overhead() {
		return "", fmt.Errorf("%w: data too short", ErrInvalidCiphertext)
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryptionFailed, err.Error())
	}
	return string(plaintext), nil
}

// SealToken returns t with both token strings encrypted.
func (e *TokenEncryptor) SealToken(t models.Token) (models.Token, error) {
	var err error
	if t.AccessToken, err = e.Encrypt(t.AccessToken); err != nil {
		return t, fmt.Errorf("encrypt access token: %w", err)
	}
	if t.RefreshToken, err = e.Encrypt(t.RefreshToken); err != nil {
		return t, fmt.Errorf("encrypt refresh token: %w", err)
	}
	return t, nil
}

// OpenToken reverses SealToken.
func (e *TokenEncryptor) OpenToken(t models.Token) (models.Token, error) {
	var err error
	if t.AccessToken, err = e.Decrypt(t.AccessToken); err != nil {
		return t, fmt.Errorf("decrypt access token: %w", err)
	}
	if t.RefreshToken, err = e.Decrypt(t.RefreshToken); err != nil {
		return t, fmt.Errorf("decrypt refresh token: %w", err)
	}
	return t, nil
}
