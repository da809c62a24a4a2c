package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns a deterministic SHA-256 fingerprint of a secret,
// base64url-encoded (43 chars). Logged at startup so operators can tell which
// signing secret a process runs with without the secret itself being written
// anywhere.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
