package auth

import (
	"testing"
	"time"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	jailID := int64(3)
	tok, err := NewAccessToken(42, "warden", "admin", &jailID, time.Hour, "secret")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := Parse(tok, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Sub != 42 || claims.Username != "warden" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.JailID == nil || *claims.JailID != 3 {
		t.Fatal("jail binding lost")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := NewAccessToken(42, "warden", "admin", nil, time.Hour, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(tok, "other-secret"); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParse_Expired(t *testing.T) {
	tok, err := NewAccessToken(42, "vera", "visitor", nil, -time.Minute, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(tok, "secret"); err == nil {
		t.Fatal("expected expiry error")
	}
}
