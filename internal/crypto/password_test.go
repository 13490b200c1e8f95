package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestHashTokenStable(t *testing.T) {
	first := HashToken("token-value")
	if first != HashToken("token-value") {
		t.Fatalf("expected stable hash")
	}
	if first == HashToken("token-value-2") {
		t.Fatalf("expected distinct hashes")
	}
	if len(first) != 43 {
		t.Fatalf("expected 43 char base64url digest, got %d", len(first))
	}
}
