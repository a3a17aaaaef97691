package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingSecret = errors.New("hs256 secret is not configured")
)

// Issuer is stamped on tokens minted by the booking service.
const Issuer = "massagebook"

// clockSkew is tolerated on exp and iat checks.
const clockSkew = 30 * time.Second

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Iss  string `json:"iss,omitempty"`
	Exp  int64  `json:"exp"`
	Iat  int64  `json:"iat"`
}

// NewClaims builds claims for subject/role valid for ttl from now.
func NewClaims(sub, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{Sub: sub, Role: role, Iss: Issuer, Iat: now.Unix(), Exp: now.Add(ttl).Unix()}
}

func (c Claims) validAt(now time.Time) bool {
	if c.Exp > 0 && now.Add(-clockSkew).Unix() > c.Exp {
		return false
	}
	if c.Iat > 0 && now.Add(clockSkew).Unix() < c.Iat {
		return false
	}
	return true
}

type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid,omitempty"`
}

// token is a compact JWS split into its parts.
type token struct {
	header    Header
	unsigned  string
	payload   []byte
	signature []byte
}

func split(raw string) (*token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidToken
	}
	t := &token{unsigned: parts[0] + "." + parts[1]}
	if err := json.Unmarshal(headerJSON, &t.header); err != nil {
		return nil, ErrInvalidToken
	}
	if t.payload, err = base64.RawURLEncoding.DecodeString(parts[1]); err != nil {
		return nil, ErrInvalidToken
	}
	if t.signature, err = base64.RawURLEncoding.DecodeString(parts[2]); err != nil {
		return nil, ErrInvalidToken
	}
	return t, nil
}

func (t *token) claims() (*Claims, error) {
	var c Claims
	if err := json.Unmarshal(t.payload, &c); err != nil {
		return nil, ErrInvalidToken
	}
	if !c.validAt(time.Now()) {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

func ParseHeader(raw string) (*Header, error) {
	t, err := split(raw)
	if err != nil {
		return nil, err
	}
	return &t.header, nil
}

func SignHS256(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	headerJSON, err := json.Marshal(Header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(hmacSHA256(unsigned, secret)), nil
}

// ParseAndVerifyHS256 checks the HMAC and expiry. Tokens whose header names another algorithm
// are rejected before any signature work.
func ParseAndVerifyHS256(raw, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	t, err := split(raw)
	if err != nil {
		return nil, err
	}
	if t.header.Alg != "HS256" || !hmac.Equal(t.signature, hmacSHA256(t.unsigned, secret)) {
		return nil, ErrInvalidToken
	}
	return t.claims()
}

func VerifyRS256(raw string, pubKey crypto.PublicKey) (*Claims, error) {
	rsaKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidToken
	}
	t, err := split(raw)
	if err != nil {
		return nil, err
	}
	if t.header.Alg != "RS256" {
		return nil, ErrInvalidToken
	}
	hash := sha256.Sum256([]byte(t.unsigned))
	if err := rsa.VerifyPKCS1v15(rsaKey, crypto.SHA256, hash[:], t.signature); err != nil {
		return nil, ErrInvalidToken
	}
	return t.claims()
}

func hmacSHA256(data, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(data))
	return mac.Sum(nil)
}
