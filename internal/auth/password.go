package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/itchan-dev/newsletter/internal/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordMismatch = errors.New("password does not match hash")
	ErrUnsupportedHash  = errors.New("unsupported password hash format")
)

// Hasher produces a storable hash for a new password.
type Hasher interface {
	Hash(password string) (string, error)
}

type Argon2idParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

type Argon2id struct {
	Params Argon2idParams
}

// Hash returns a PHC string: $argon2id$v=19$m=...,t=...,p=...$<salt>$<key>
func (a Argon2id) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	p := a.Params
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func NewHasher(cfg config.Auth) (Hasher, error) {
	switch cfg.Hasher {
	case config.HasherArgon2id, "":
		return Argon2id{Params: Argon2idParams{
			Memory:      cfg.Argon2.Memory,
			Iterations:  cfg.Argon2.Iterations,
			Parallelism: cfg.Argon2.Parallelism,
			KeyLength:   cfg.Argon2.KeyLength,
		}}, nil
	case config.HasherBcrypt:
		return Bcrypt{Cost: cfg.BcryptCost}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", cfg.Hasher)
	}
}

// VerifyPassword checks password against an argon2id PHC string or a bcrypt hash,
// picking the algorithm from the hash prefix. Parameters come from the hash itself.
func VerifyPassword(password, hash string) error {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return verifyArgon2id(password, hash)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	default:
		return ErrUnsupportedHash
	}
}

func verifyArgon2id(password, hash string) error {
	params, salt, stored, err := parseArgon2id(hash)
	if err != nil {
		return err
	}
	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(stored)))
	if subtle.ConstantTimeCompare(key, stored) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// Upper bounds for parameters read from stored hashes.
const (
	maxArgon2Memory     = 1 << 20 // KiB
	maxArgon2Iterations = 64
)

func parseArgon2id(hash string) (Argon2idParams, []byte, []byte, error) {
	var params Argon2idParams

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return params, nil, nil, fmt.Errorf("%w: malformed argon2id hash", ErrUnsupportedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: argon2 version", ErrUnsupportedHash)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("%w: argon2 params: %v", ErrUnsupportedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %v", ErrUnsupportedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: key: %v", ErrUnsupportedHash, err)
	}

	// argon2.IDKey panics on zero rounds or threads
	switch {
	case params.Iterations < 1, params.Iterations > maxArgon2Iterations:
		return params, nil, nil, fmt.Errorf("%w: argon2 iterations %d", ErrUnsupportedHash, params.Iterations)
	case params.Parallelism < 1:
		return params, nil, nil, fmt.Errorf("%w: argon2 parallelism %d", ErrUnsupportedHash, params.Parallelism)
	case params.Memory > maxArgon2Memory:
		return params, nil, nil, fmt.Errorf("%w: argon2 memory %d KiB", ErrUnsupportedHash, params.Memory)
	case len(key) == 0:
		return params, nil, nil, fmt.Errorf("%w: empty argon2 key", ErrUnsupportedHash)
	}
	params.KeyLength = uint32(len(key))
	return params, salt, key, nil
}
