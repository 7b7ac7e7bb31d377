package core

import "testing"

func TestHashPassword(t *testing.T) {
	password := "password"
	hashed, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() returned an unexpected error: %v", err)
	}

	if hashed == password {
		t.Fatal("expected hashed password not to equal password")
	}

	if !VerifyPassword(hashed, password) {
		t.Error("expected VerifyPassword to accept the original password")
	}
	if VerifyPassword(hashed, "notthepassword") {
		t.Error("expected VerifyPassword to reject a different password")
	}
}

func TestVerifyPassword_BadHash(t *testing.T) {
	if VerifyPassword("not a bcrypt hash", "password") {
		t.Error("expected VerifyPassword to reject a malformed hash")
	}
}
