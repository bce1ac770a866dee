package identity

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("PW4821")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == "PW4821" {
		t.Fatalf("hash must not equal the raw password")
	}
	if err := CheckPassword(hash, "PW4821"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "PW0000"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}
