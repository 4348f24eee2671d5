package jwt

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	manager := NewJWTManager("test-secret")

	token, err := manager.GenerateToken("alice", "s1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "alice" || claims.SessionID != "s1" {
		t.Fatalf("wrong claims: %+v", claims)
	}
}

func TestGenerateTokenRequiresIdentity(t *testing.T) {
	manager := NewJWTManager("test-secret")

	if _, err := manager.GenerateToken("", "s1", time.Minute); err == nil {
		t.Fatal("empty userID should be rejected")
	}
	if _, err := manager.GenerateToken("alice", "", time.Minute); err == nil {
		t.Fatal("empty sessionID should be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret")

	token, err := manager.GenerateToken("alice", "s1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := manager.ValidateToken(token); err == nil {
		t.Fatal("expired token should fail validation")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a").GenerateToken("alice", "s1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := NewJWTManager("secret-b").ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret should fail validation")
	}
	if _, err := NewJWTManager("secret-a").ValidateToken("not-a-token"); err == nil {
		t.Fatal("garbage should fail validation")
	}
}
