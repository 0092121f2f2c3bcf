package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Refresh tokens are stored hashed in the session registry so a leaked
// registry row never yields a usable token. Unsalted SHA-256 is sufficient:
// the input is a signed JWT carrying a random jti, not a guessable secret.

// HashRefreshToken returns the registry representation of a refresh token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshTokenHashEqual reports whether token hashes to storedHash. The
// comparison is constant time.
func RefreshTokenHashEqual(token, storedHash string) bool {
	computed := HashRefreshToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
