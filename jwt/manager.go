package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects the token family. Access and refresh tokens are signed with
// independent secrets.
type Kind string

const (
	// KindAccess is the short-lived per-request credential.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived credential used only to mint new access tokens.
	KindRefresh Kind = "refresh"
)

// Status is the verification outcome discriminant returned in [Result].
type Status uint8

const (
	// StatusInvalid covers bad signatures, malformed input, wrong key or wrong kind.
	// It is terminal for the presented token.
	StatusInvalid Status = iota
	// StatusExpired means the signature verified but the token is past its expiry.
	StatusExpired
	// StatusValid means the token verified and has not expired.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

const (
	minSecretBytes = 32
	maxLeeway      = time.Minute
)

var (
	// ErrExpired is carried in [Result.Err] for expired tokens.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is carried in [Result.Err] for tokens that failed verification.
	ErrInvalid = errors.New("token invalid")
)

// Config configures a [Manager].
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Identity is the caller-supplied part of the claim set.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
}

// Claims is the signed payload carried by both token kinds. The subject id
// travels in the registered sub claim.
type Claims struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Kind        Kind   `json:"knd"`
	jwt.RegisteredClaims
}

// Identity returns the identity part of the claim set.
func (c *Claims) Identity() Identity {
	return Identity{
		SubjectID:   c.Subject,
		Email:       c.Email,
		DisplayName: c.DisplayName,
	}
}

// Result is the outcome of [Manager.Verify]. Claims is set for
// StatusValid and StatusExpired.
type Result struct {
	Status Status
	Claims *Claims
	Err    error
}

// Manager issues and verifies HS256 session tokens.
//
// Manager holds no mutable state and is safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.AccessSecret) < minSecretBytes {
		return nil, errors.New("access secret must be at least 32 bytes")
	}
	if len(cfg.RefreshSecret) < minSecretBytes {
		return nil, errors.New("refresh secret must be at least 32 bytes")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)

	return &Manager{config: cfg}, nil
}

// TTL returns the token lifetime for kind.
func (m *Manager) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return m.config.RefreshTTL
	}
	return m.config.AccessTTL
}

// Issue signs a new token of the given kind for id. Issued-at and expiry are
// always computed here from the manager clock.
func (m *Manager) Issue(kind Kind, id Identity) (string, error) {
	secret, err := m.secret(kind)
	if err != nil {
		return "", err
	}
	if id.SubjectID == "" {
		return "", errors.New("subject id required")
	}

	now := m.config.Now().UTC()
	claims := Claims{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Kind:        kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.SubjectID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(kind))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	return token.SignedString(secret)
}

// Verify checks signature, kind and expiry of tokenStr.
//
// Expiry is evaluated only after the signature verified, so StatusExpired
// never describes a forged token.
func (m *Manager) Verify(kind Kind, tokenStr string) Result {
	secret, err := m.secret(kind)
	if err != nil {
		return invalid(err)
	}
	if tokenStr == "" {
		return invalid(errors.New("empty token"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if m.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != m.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return secret, nil
	})
	if err != nil {
		return invalid(err)
	}
	if !token.Valid {
		return invalid(jwt.ErrTokenSignatureInvalid)
	}

	if claims.Kind != kind {
		return invalid(errors.New("token kind mismatch"))
	}
	if claims.Subject == "" {
		return invalid(errors.New("missing subject"))
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return invalid(jwt.ErrTokenInvalidIssuer)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return invalid(jwt.ErrTokenRequiredClaimMissing)
	}

	// Leeway bounds clock skew in both directions.
	now := m.config.Now()
	if claims.IssuedAt.Time.After(now.Add(m.config.Leeway)) {
		return invalid(jwt.ErrTokenUsedBeforeIssued)
	}
	if now.After(claims.ExpiresAt.Time.Add(m.config.Leeway)) {
		return Result{Status: StatusExpired, Claims: claims, Err: ErrExpired}
	}

	return Result{Status: StatusValid, Claims: claims}
}

func (m *Manager) secret(kind Kind) ([]byte, error) {
	switch kind {
	case KindAccess:
		return m.config.AccessSecret, nil
	case KindRefresh:
		return m.config.RefreshSecret, nil
	default:
		return nil, errors.New("unknown token kind")
	}
}

func invalid(cause error) Result {
	return Result{Status: StatusInvalid, Err: errors.Join(ErrInvalid, cause)}
}
