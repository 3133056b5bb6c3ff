package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	// ErrExpired reports a token whose signature verified but whose
	// lifetime (with configured leeway) has elapsed.
	ErrExpired = errors.New("token expired")
	// ErrMalformed reports a token that failed parsing or signature
	// verification, or whose claims violate the parser constraints.
	ErrMalformed = errors.New("token malformed")
	// ErrWrongKind reports a structurally valid token presented to the
	// wrong verification path (refresh token to VerifyAccess or vice versa).
	ErrWrongKind = errors.New("wrong token kind")
)

// Config holds the signing material and lifetimes for a Manager.
// Configure once at startup; Manager treats it as immutable.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
	// VerifyKeys maps kid headers to verification keys. When set, tokens
	// signed under a retired key keep verifying for as long as its kid
	// stays in the map.
	VerifyKeys map[string][]byte
}

// Manager signs and verifies token pairs. Safe for concurrent use.
type Manager struct {
	config Config
}

// AccessClaims is the payload of an access token. Subject carries the
// account id; Permissions is the set resolved at issuance.
type AccessClaims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"perms,omitempty"`
	Kind        string   `json:"knd"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. ID (jti) is the
// rotation identifier compared against the account's stored pointer.
type RefreshClaims struct {
	Kind string `json:"knd"`
	jwt.RegisteredClaims
}

// Pair is the result of one issuance.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	RefreshID        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// Issue signs a fresh access/refresh pair for the account. perms is the
// permission set already resolved for the account's role and overrides;
// it is embedded as-is. The refresh token gets a new unique rotation id.
func (m *Manager) Issue(accountID, role string, perms []string, now time.Time) (*Pair, error) {
	accessExp := now.Add(m.config.AccessTTL)
	refreshExp := now.Add(m.config.RefreshTTL)
	refreshID := uuid.NewString()

	access := AccessClaims{
		Role:        role,
		Permissions: perms,
		Kind:        kindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(accessExp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	refresh := RefreshClaims{
		Kind: kindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ID:        refreshID,
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	accessStr, err := m.sign(access)
	if err != nil {
		return nil, err
	}
	refreshStr, err := m.sign(refresh)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      accessStr,
		RefreshToken:     refreshStr,
		RefreshID:        refreshID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature and lifetime of an access token as of now
// and returns its claims. A refresh token is rejected with ErrWrongKind.
func (m *Manager) VerifyAccess(tokenStr string, now time.Time) (*AccessClaims, error) {
	var claims AccessClaims
	if err := m.parse(tokenStr, &claims, now); err != nil {
		return nil, err
	}
	if claims.Kind != kindAccess {
		return nil, ErrWrongKind
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return &claims, nil
}

// ParseRefresh checks signature and lifetime of a refresh token as of now
// and returns its claims. Whether the rotation id is still current is the
// caller's decision; this only establishes authenticity.
func (m *Manager) ParseRefresh(tokenStr string, now time.Time) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := m.parse(tokenStr, &claims, now); err != nil {
		return nil, err
	}
	if claims.Kind != kindRefresh {
		return nil, ErrWrongKind
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or jti", ErrMalformed)
	}
	return &claims, nil
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	tok := jwt.NewWithClaims(m.method(), claims)
	if m.config.KeyID != "" {
		tok.Header["kid"] = m.config.KeyID
	}
	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, now time.Time) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, claims, m.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !tok.Valid {
		return ErrMalformed
	}
	return nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.method().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return m.keyBytesToVerifyKey(key)
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.verifyKey()
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func (m *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
