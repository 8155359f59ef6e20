package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession is returned when a session token is unknown or expired.
	ErrInvalidSession = errors.New("invalid session token")
)

// GenerateSessionToken creates a secure random opaque token plus the hash
// under which it is persisted.
func GenerateSessionToken() (raw string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)
	hashed = HashSessionToken(raw)
	return raw, hashed, nil
}

// HashSessionToken produces a base64 SHA-256 hash of the raw token.
func HashSessionToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SessionRedisKey builds the Redis key holding a sub-account session record.
func SessionRedisKey(hash string) string {
	return fmt.Sprintf("subaccount:session:%s", hash)
}
