package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewToken("secret", "issuer", "token-1", time.Minute, time.Now(), Claims{
		AccountID: "account-1",
		Role:      "STUDENT",
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if claims.AccountID != "account-1" || claims.Role != "STUDENT" || claims.ID != "token-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Subject != "account-1" {
		t.Fatalf("expected subject to mirror account id")
	}
}

func TestParseRejectsWrongSecretAndIssuer(t *testing.T) {
	token, err := NewToken("secret", "issuer", "token-1", time.Minute, time.Now(), Claims{AccountID: "account-1"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("other", "issuer", token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := ParseToken("secret", "someone-else", token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := NewToken("secret", "issuer", "token-1", time.Minute, time.Now().Add(-time.Hour), Claims{AccountID: "account-1"})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "issuer", token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestNewTokenRequiresSecret(t *testing.T) {
	if _, err := NewToken("", "issuer", "token-1", time.Minute, time.Now(), Claims{AccountID: "a"}); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
