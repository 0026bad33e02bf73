package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const (
	kindSession = "session"
	kindUnlock  = "unlock"
)

var (
	ErrInvalidConfig = errors.New("invalid token manager config")
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongKind     = errors.New("token kind mismatch")
)

// Config configures a Manager.
type Config struct {
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for hs256 or an ed25519 key (raw or PEM).
	PrivateKey []byte
	// PublicKey is the ed25519 verification key (raw or PEM). Ignored for hs256.
	PublicKey []byte
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// Manager signs and parses session and unlock tokens.
type Manager struct {
	cfg        Config
	signKey    any
	verifyKey  any
	method     jwt.SigningMethod
	parserOpts []jwt.ParserOption
}

// SessionClaims bind a session token to the ActiveUserSession it was issued for.
type SessionClaims struct {
	AccountID string `json:"aid"`
	Role      string `json:"role,omitempty"`
	SessionID int64  `json:"sid"`
	DeviceID  string `json:"dev,omitempty"`
	IP        string `json:"ip,omitempty"`
	Country   string `json:"cc,omitempty"`
	Kind      string `json:"knd"`
	jwt.RegisteredClaims
}

// UnlockClaims authorize re-enabling a locked account. ID is the unlock session key.
type UnlockClaims struct {
	Kind string `json:"knd"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and resolves its keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway must be in [0, 2m]", ErrInvalidConfig)
	}

	m := &Manager{cfg: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, fmt.Errorf("%w: hs256 secret must be at least 32 bytes", ErrInvalidConfig)
		}
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(cfg.PublicKey) > 0 {
			if pub, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		m.method = jwt.SigningMethodEdDSA
		m.signKey = priv
		m.verifyKey = pub
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, cfg.SigningMethod)
	}

	m.parserOpts = []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		m.parserOpts = append(m.parserOpts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		m.parserOpts = append(m.parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		m.parserOpts = append(m.parserOpts, jwt.WithAudience(cfg.Audience))
	}
	return m, nil
}

// CreateSession signs c for ttl. SessionID and AccountID must be set.
func (m *Manager) CreateSession(c SessionClaims, issuedAt time.Time, ttl time.Duration) (string, error) {
	if c.AccountID == "" || c.SessionID == 0 {
		return "", fmt.Errorf("%w: session claims need account and session id", ErrInvalidToken)
	}
	c.Kind = kindSession
	c.RegisteredClaims = m.registered(c.AccountID, issuedAt, ttl)
	return m.sign(&c)
}

// ParseSession verifies a session token.
func (m *Manager) ParseSession(token string) (*SessionClaims, error) {
	var c SessionClaims
	if err := m.parse(token, &c); err != nil {
		return nil, err
	}
	if c.Kind != kindSession {
		return nil, ErrWrongKind
	}
	return &c, nil
}

// CreateUnlock signs an unlock token for accountID and returns it with its id.
func (m *Manager) CreateUnlock(accountID string, now time.Time, ttl time.Duration) (token, id string, err error) {
	c := UnlockClaims{Kind: kindUnlock, RegisteredClaims: m.registered(accountID, now, ttl)}
	c.ID = uuid.NewString()
	token, err = m.sign(&c)
	if err != nil {
		return "", "", err
	}
	return token, c.ID, nil
}

// ParseUnlock verifies an unlock token.
func (m *Manager) ParseUnlock(token string) (*UnlockClaims, error) {
	var c UnlockClaims
	if err := m.parse(token, &c); err != nil {
		return nil, err
	}
	if c.Kind != kindUnlock || c.ID == "" || c.Subject == "" {
		return nil, ErrWrongKind
	}
	return &c, nil
}

func (m *Manager) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    m.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if m.cfg.Audience != "" {
		rc.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}
	return rc
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
}

func (m *Manager) parse(token string, claims jwt.Claims) error {
	parsed, err := jwt.NewParser(m.parserOpts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 private key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: invalid ed25519 private key type", ErrInvalidConfig)
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 public key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: invalid ed25519 public key type", ErrInvalidConfig)
	}
	return edKey, nil
}
