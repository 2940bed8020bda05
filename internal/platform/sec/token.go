// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// RefreshSecretBytes is the entropy of a refresh secret before encoding.
const RefreshSecretBytes = 32

// GenerateSecureToken returns a URL-safe random string carrying n bytes of entropy.
func GenerateSecureToken(n int) (string, error) {
	buffer := make([]byte, n)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a raw token.
//
// Refresh secrets are stored and looked up only by this digest, so a leaked
// table never yields a usable credential.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssueRefreshSecret mints a new opaque refresh secret and its storage digest.
func IssueRefreshSecret() (raw string, hash string, err error) {
	raw, err = GenerateSecureToken(RefreshSecretBytes)
	if err != nil {
		return "", "", err
	}
	return raw, HashToken(raw), nil
}
