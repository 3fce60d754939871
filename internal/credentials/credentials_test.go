package credentials

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestStatic(t *testing.T) {
	p := NewStatic("opaque-token")

	if !p.HasValidToken() {
		t.Error("HasValidToken = false for non-empty static token")
	}
	tok, ok := p.CurrentToken()
	if !ok || tok != "opaque-token" {
		t.Errorf("CurrentToken = %q, %v", tok, ok)
	}
}

func TestStatic_Empty(t *testing.T) {
	p := NewStatic("")

	if p.HasValidToken() {
		t.Error("HasValidToken = true for empty token")
	}
	if _, ok := p.CurrentToken(); ok {
		t.Error("CurrentToken ok = true for empty token")
	}
}

func TestStatic_Expiry(t *testing.T) {
	live := NewStaticWithExpiry("tok", time.Now().Add(time.Hour))
	if !live.HasValidToken() {
		t.Error("token with future expiry reported invalid")
	}

	stale := NewStaticWithExpiry("tok", time.Now().Add(-time.Hour))
	if stale.HasValidToken() {
		t.Error("token past its expiry reported valid")
	}
}

func TestJWT_Valid(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	p, err := NewJWT(token, 0)
	if err != nil {
		t.Fatalf("NewJWT failed: %v", err)
	}
	if !p.HasValidToken() {
		t.Error("HasValidToken = false for unexpired token")
	}
	got, ok := p.CurrentToken()
	if !ok || got != token {
		t.Error("CurrentToken did not return the held token")
	}
}

func TestJWT_Expired(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	p, err := NewJWT(token, 0)
	if err != nil {
		t.Fatalf("NewJWT failed: %v", err)
	}
	if p.HasValidToken() {
		t.Error("HasValidToken = true for expired token")
	}
}

func TestJWT_LeewayTreatsNearExpiryAsStale(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"exp": time.Now().Add(30 * time.Second).Unix(),
	})

	p, err := NewJWT(token, time.Minute)
	if err != nil {
		t.Fatalf("NewJWT failed: %v", err)
	}
	if p.HasValidToken() {
		t.Error("token inside the leeway window reported valid")
	}
}

func TestJWT_NoExpClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "user-1"})

	p, err := NewJWT(token, 0)
	if err != nil {
		t.Fatalf("NewJWT failed: %v", err)
	}
	if !p.HasValidToken() {
		t.Error("token without exp claim reported invalid")
	}
}

func TestJWT_Malformed(t *testing.T) {
	if _, err := NewJWT("not-a-jwt", 0); err == nil {
		t.Fatal("NewJWT accepted a malformed token")
	}
}

func TestJWT_SetToken(t *testing.T) {
	expired := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	fresh := signedToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	p, err := NewJWT(expired, 0)
	if err != nil {
		t.Fatalf("NewJWT failed: %v", err)
	}
	if p.HasValidToken() {
		t.Fatal("expired token reported valid")
	}

	if err := p.SetToken(fresh); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}
	if !p.HasValidToken() {
		t.Error("refreshed token reported invalid")
	}

	if err := p.SetToken("garbage"); err == nil {
		t.Error("SetToken accepted a malformed token")
	}
	if got, _ := p.CurrentToken(); got != fresh {
		t.Error("failed SetToken replaced the held token")
	}
}
