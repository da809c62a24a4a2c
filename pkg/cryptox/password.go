package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

// Limits accepted when reading a stored digest. Anything outside them is
// treated as malformed rather than computed.
const (
	maxMemory      = 64 * 1024
	maxIterations  = 10
	maxParallelism = 16
	minSaltLength  = 8
	maxSaltLength  = 64
	minKeyLength   = 16
	maxKeyLength   = 64
)

var (
	ErrMalformedHash = errors.New("cryptox: malformed password hash")
	ErrMismatch      = errors.New("cryptox: password does not match")
)

// Hasher produces and checks password digests. New digests are Argon2id in
// PHC format; bcrypt digests written by the previous deployment still verify
// so migrated users can log in.
//
// The zero value is usable and hashes without a pepper.
type Hasher struct {
	// Pepper is appended to the password before Argon2id hashing. It is never
	// applied to bcrypt digests, those predate it.
	Pepper string
}

// NewHasher returns a Hasher using the given pepper.
func NewHasher(pepper string) *Hasher {
	return &Hasher{Pepper: pepper}
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}
	hash := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		iterations,
		memory,
		parallelism,
		keyLength,
	)
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		b64Salt,
		b64Hash,
	), nil
}

// Verify reports whether encodedHash was produced from password. Malformed
// digests are reported as a mismatch.
func (h *Hasher) Verify(password, encodedHash string) bool {
	return h.Compare(password, encodedHash) == nil
}

// Compare is Verify with the failure reason: ErrMismatch or ErrMalformedHash.
func (h *Hasher) Compare(password, encodedHash string) error {
	if isBcrypt(encodedHash) {
		return compareBcrypt(password, encodedHash)
	}
	return h.compareArgon2id(password, encodedHash)
}

func (h *Hasher) compareArgon2id(password, encodedHash string) error {
	// PHC format: $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return fmt.Errorf("%w: expected 6 parts", ErrMalformedHash)
	}
	if parts[1] != "argon2id" {
		return fmt.Errorf("%w: not argon2id", ErrMalformedHash)
	}
	if parts[2] != "v=19" {
		return fmt.Errorf("%w: wrong version", ErrMalformedHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}
	if mem == 0 || iters == 0 || par == 0 {
		return fmt.Errorf("%w: zero parameter", ErrMalformedHash)
	}
	if mem > maxMemory || iters > maxIterations || par > maxParallelism {
		return fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if len(salt) < minSaltLength || len(salt) > maxSaltLength {
		return fmt.Errorf("%w: salt length", ErrMalformedHash)
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) < minKeyLength || len(expectedHash) > maxKeyLength {
		return fmt.Errorf("%w: hash", ErrMalformedHash)
	}

	computed := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expectedHash)), // #nosec G115 - bounded by maxKeyLength
	)

	if subtle.ConstantTimeCompare(computed, expectedHash) == 1 {
		return nil
	}
	return ErrMismatch
}

func isBcrypt(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

func compareBcrypt(password, encodedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
