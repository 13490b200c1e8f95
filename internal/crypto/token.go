package crypto

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashToken is the lookup key stored for an issued bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
