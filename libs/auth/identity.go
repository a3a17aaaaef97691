package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/massagebook/libs/httpx"
)

const (
	RoleClient   = "client"
	RoleProvider = "provider"
)

// Header names set by an upstream gateway after it has verified the caller.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

// Identity is the acting user. The booking core trusts it without re-authenticating.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsClient() bool   { return i.UserID != "" && i.Role == RoleClient }
func (i Identity) IsProvider() bool { return i.UserID != "" && i.Role == RoleProvider }

type ctxKey int

const ctxKeyIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok && id.UserID != ""
}

// Verifier resolves bearer tokens. With a JWKS client, RS256 tokens carrying a kid are checked
// against it; everything else is verified as HS256 with the shared secret.
type Verifier struct {
	Secret       string
	JWKS         *JWKSClient
	TrustHeaders bool
}

func (v Verifier) Verify(token string) (*Claims, error) {
	if v.JWKS != nil {
		header, err := ParseHeader(token)
		if err != nil {
			return nil, ErrInvalidToken
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.JWKS.Get(header.Kid)
			if err != nil {
				return nil, ErrInvalidToken
			}
			return VerifyRS256(token, pub)
		}
	}
	return ParseAndVerifyHS256(token, v.Secret)
}

// RequireIdentity rejects requests without a valid identity and stores it on the request context.
func RequireIdentity(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, status, msg := v.identify(r)
			if status != 0 {
				httpx.WriteError(w, status, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func (v Verifier) identify(r *http.Request) (Identity, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" && v.TrustHeaders {
		id := Identity{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   strings.TrimSpace(r.Header.Get(HeaderRole)),
		}
		if id.UserID == "" || !validRole(id.Role) {
			return Identity{}, http.StatusUnauthorized, "missing identity headers"
		}
		return id, 0, ""
	}

	if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
		return Identity{}, http.StatusUnauthorized, "missing or invalid Authorization header"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	claims, err := v.Verify(token)
	if err != nil {
		return Identity{}, http.StatusUnauthorized, "invalid token"
	}
	if claims.Sub == "" || !validRole(claims.Role) {
		return Identity{}, http.StatusForbidden, "token carries no booking role"
	}
	return Identity{UserID: claims.Sub, Role: claims.Role}, 0, ""
}

func validRole(role string) bool {
	return role == RoleClient || role == RoleProvider
}
