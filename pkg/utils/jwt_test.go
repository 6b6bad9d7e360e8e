package utils

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	token, err := GenerateToken(secret, "u1", "t1", []string{"admins"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" {
		t.Errorf("user id = %s, want u1", claims.UserID)
	}
	if claims.TenantID != "t1" {
		t.Errorf("tenant id = %s, want t1", claims.TenantID)
	}
	if !claims.Groups.Contains("admins") {
		t.Error("groups lost the admins entry")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken("secret-a", "u1", "t1", nil, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ValidateToken("secret-b", token); err == nil {
			t.Error("token accepted with wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := GenerateToken("secret", "u1", "t1", nil, -time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := ValidateToken("secret", token); err == nil {
			t.Error("expired token accepted")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ValidateToken("secret", "not.a.token"); err == nil {
			t.Error("garbage accepted")
		}
	})
}
