package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
)

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash produces an Argon2id hash for main-account passwords (parameters are
// embedded in the hash itself).
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// Verify compares a main-account password against its Argon2id hash.
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}

// HashSubAccountPassword derives the stored hash for a sub-account password.
// The owning main account id acts as the salt; existing rows were written with
// this exact scheme, so it must not change.
func HashSubAccountPassword(password string, mainAccountID uuid.UUID) string {
	sum := sha256.Sum256([]byte(password + mainAccountID.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySubAccountPassword checks a sub-account password in constant time.
func VerifySubAccountPassword(password string, mainAccountID uuid.UUID, storedHash string) bool {
	computed := HashSubAccountPassword(password, mainAccountID)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
