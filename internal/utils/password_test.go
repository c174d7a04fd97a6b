package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("front-desk-9", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword(hash, "front-desk-9") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "front-desk-8") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordCostFallback(t *testing.T) {
	for _, cost := range []int{0, -1, bcrypt.MaxCost + 1} {
		hash, err := HashPassword("front-desk-9", cost)
		if err != nil {
			t.Fatalf("HashPassword(cost=%d): %v", cost, err)
		}
		got, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			t.Fatalf("Cost: %v", err)
		}
		if got != bcrypt.DefaultCost {
			t.Errorf("cost %d: hashed at cost %d, want default %d", cost, got, bcrypt.DefaultCost)
		}
	}
}
