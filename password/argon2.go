package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16

	// MinPasswordBytes and MaxPasswordBytes bound Hash input. Verify
	// rejects oversized input before running the KDF.
	MinPasswordBytes = 8
	MaxPasswordBytes = 1024

	algorithmID = "argon2id"
)

var (
	ErrPasswordLength = errors.New("password length out of range")
	ErrMalformedHash  = errors.New("malformed argon2id hash")
)

var b64 = base64.RawStdEncoding

// Config holds the argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config    Config
	dummyHash string
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and precomputes the hash used by DummyVerify.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}

	a := &Argon2{config: cfg}
	dummy, err := a.Hash("goSession-dummy-password")
	if err != nil {
		return nil, err
	}
	a.dummyHash = dummy
	return a, nil
}

// Hash returns a PHC-encoded argon2id hash of password.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < MinPasswordBytes || len(password) > MaxPasswordBytes {
		return "", ErrPasswordLength
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	c := a.config
	key := argon2.IDKey([]byte(password), salt, c.Time, c.Memory, c.Parallelism, c.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, c.Memory, c.Time, c.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. The hash's own
// parameters are used, so hashes made under older settings still verify.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		return false, ErrPasswordLength
	}
	p, err := parse(encodedHash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// DummyVerify spends the cost of one Verify against a fixed hash. Login
// calls it for unknown users so response time does not reveal whether an
// account exists.
func (a *Argon2) DummyVerify(password string) {
	if len(password) > MaxPasswordBytes {
		password = password[:MaxPasswordBytes]
	}
	_, _ = a.Verify(password, a.dummyHash)
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current config.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := parse(encodedHash)
	if err != nil {
		return false, err
	}
	c := a.config
	return p.memory < c.Memory ||
		p.time < c.Time ||
		p.parallelism < c.Parallelism ||
		uint32(len(p.key)) != c.KeyLength, nil
}

// parse decodes $argon2id$v=19$m=..,t=..,p=..$salt$key.
func parse(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var p phc
	seen := 0
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, ErrMalformedHash
		}
		var bits int
		switch k {
		case "m", "t":
			bits = 32
		case "p":
			bits = 8
		default:
			return nil, ErrMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil || n == 0 {
			return nil, ErrMalformedHash
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			p.parallelism = uint8(n)
		}
		seen++
	}
	if seen != 3 || p.memory < minMemoryKB || p.time == 0 || p.parallelism == 0 {
		return nil, ErrMalformedHash
	}

	var err error
	if p.salt, err = b64.DecodeString(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return nil, ErrMalformedHash
	}
	if p.key, err = b64.DecodeString(parts[5]); err != nil || len(p.key) < int(minKeyLength) {
		return nil, ErrMalformedHash
	}
	return &p, nil
}
