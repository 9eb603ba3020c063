package password

import (
	"errors"
	"fmt"
)

// Algorithm names a hashing scheme.
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmBcrypt   Algorithm = "bcrypt"
)

var (
	// ErrPasswordTooLong is returned when the plaintext exceeds the configured cap.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnsupportedHash is returned for encoded hashes of an unknown scheme.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
	NeedsRehash(encodedHash string) (bool, error)
}

// Config selects the algorithm and its parameters.
type Config struct {
	Algorithm  Algorithm
	Argon2     Argon2Config
	BcryptCost int
}

// DefaultConfig returns Argon2id with interactive parameters.
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmArgon2id,
		Argon2:     DefaultArgon2Config(),
		BcryptCost: 12,
	}
}

// New builds the Hasher named by cfg.Algorithm.
func New(cfg Config) (Hasher, error) {
	switch cfg.Algorithm {
	case AlgorithmArgon2id, "":
		return NewArgon2(cfg.Argon2)
	case AlgorithmBcrypt:
		return NewBcrypt(cfg.BcryptCost)
	default:
		return nil, fmt.Errorf("password: unknown algorithm %q", cfg.Algorithm)
	}
}
