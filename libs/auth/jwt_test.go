package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	claims := NewClaims("client-1", RoleClient, time.Hour)
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256Expired(t *testing.T) {
	token, err := SignHS256(NewClaims("client-1", RoleClient, -time.Minute), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "test-secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRS256Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	claims := NewClaims("provider-2", RoleProvider, time.Hour)

	token, err := signRS256(claims, key, "kid-1")
	if err != nil {
		t.Fatalf("rs256 Sign failed: %v", err)
	}
	parsed, err := VerifyRS256(token, &key.PublicKey)
	if err != nil {
		t.Fatalf("VerifyRS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
}

func signRS256(claims Claims, key *rsa.PrivateKey, kid string) (string, error) {
	header := map[string]string{
		"alg": "RS256",
		"typ": "JWT",
	}
	if kid != "" {
		header["kid"] = kid
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	headerEnc := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadEnc := base64.RawURLEncoding.EncodeToString(payloadJSON)
	unsigned := headerEnc + "." + payloadEnc
	hash := sha256.Sum256([]byte(unsigned))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}
	signature := base64.RawURLEncoding.EncodeToString(sig)
	return unsigned + "." + signature, nil
}

func TestHS256RequiresSecret(t *testing.T) {
	if _, err := SignHS256(NewClaims("client-1", RoleClient, time.Hour), ""); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	token, err := SignHS256(NewClaims("client-1", RoleClient, time.Hour), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, ""); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestAlgorithmMismatchRejected(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	rs, err := signRS256(NewClaims("provider-2", RoleProvider, time.Hour), key, "kid-1")
	if err != nil {
		t.Fatalf("signRS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(rs, "test-secret"); err != ErrInvalidToken {
		t.Fatalf("RS256 token accepted as HS256: %v", err)
	}

	hs, err := SignHS256(NewClaims("provider-2", RoleProvider, time.Hour), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := VerifyRS256(hs, &key.PublicKey); err != ErrInvalidToken {
		t.Fatalf("HS256 token accepted as RS256: %v", err)
	}
}

func TestClockSkewTolerated(t *testing.T) {
	now := time.Now()
	claims := Claims{Sub: "client-1", Role: RoleClient, Iat: now.Add(10 * time.Second).Unix(), Exp: now.Add(-10 * time.Second).Unix()}
	if !claims.validAt(now) {
		t.Fatal("claims within the skew window should be valid")
	}
	claims.Exp = now.Add(-time.Minute).Unix()
	if claims.validAt(now) {
		t.Fatal("claims expired beyond the skew window should be invalid")
	}
}
