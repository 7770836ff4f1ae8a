// Package credential provides salted one-way hashing for secrets
// (access PINs and admin passwords).
//
// Hashes use Argon2id in PHC string format. Two hashes of the same
// secret always differ (fresh salt per call), so stored hashes must
// only ever be compared via Verify, never directly.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Sentinel errors for hashing operations.
var (
	// ErrHashing indicates the hashing primitive itself failed
	// (CSPRNG failure). Treated as fatal for the request.
	ErrHashing = errors.New("credential: hashing failed")

	// ErrVerification indicates a stored hash is malformed or corrupt.
	// A plain mismatch is not an error - Verify returns (false, nil).
	ErrVerification = errors.New("credential: invalid stored hash")
)

// Fixed output sizes. The work parameters are configurable; these are not.
const (
	keyLength  = 32 // output hash length
	saltLength = 16 // salt length
)

// Params configures the Argon2id work factor.
// Defaults follow the OWASP recommendation.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
}

// DefaultParams returns the recommended work parameters.
func DefaultParams() Params {
	return Params{
		Time:    3,
		Memory:  64 * 1024, // 64 MiB
		Threads: 1,
	}
}

// Hasher produces and verifies Argon2id hashes with a fixed work factor.
// The zero value is not usable; construct with New.
type Hasher struct {
	params Params
}

// New creates a Hasher with the given work parameters.
// Zero-valued fields fall back to the defaults.
func New(params Params) *Hasher {
	def := DefaultParams()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	return &Hasher{params: params}
}

// Hash hashes a plaintext secret and returns it in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
//
// A fresh random salt is generated on every call.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: generating salt: %w", ErrHashing, err)
	}

	hash := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks a plaintext secret against a stored PHC hash string.
//
// The comparison is constant-time. Verification uses the parameters
// recorded in the stored hash, so hashes created under an older work
// factor keep verifying after a config change.
func (h *Hasher) Verify(secret, encodedHash string) (bool, error) {
	salt, hash, params, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(secret), salt, params.Time, params.Memory, params.Threads, uint32(len(hash))) //nolint:gosec // G115: hash length always fits uint32

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

// decodePHC parses an Argon2id PHC string format into its components.
func decodePHC(encoded string) (salt, hash []byte, params Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("%w: not in PHC format", ErrVerification)
	}

	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("%w: unsupported algorithm %q", ErrVerification, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("%w: parsing version: %w", ErrVerification, err)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return nil, nil, params, fmt.Errorf("%w: parsing parameters: %w", ErrVerification, err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, params, fmt.Errorf("%w: decoding salt: %w", ErrVerification, err)
	}

	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, params, fmt.Errorf("%w: decoding hash: %w", ErrVerification, err)
	}

	return salt, hash, params, nil
}
