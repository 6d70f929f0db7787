package invite

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-secret", "bluff", time.Hour)
	tokenString, err := svc.Issue("room-1", "ABC123", "host")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	claims := parseClaims(t, tokenString, "test-secret")
	if got := stringClaim(t, claims, "room"); got != "room-1" {
		t.Fatalf("room = %s, want room-1", got)
	}
	if got := stringClaim(t, claims, "iss"); got != "bluff" {
		t.Fatalf("iss = %s, want bluff", got)
	}

	grant, err := svc.Verify(tokenString)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if grant.RoomID != "room-1" || grant.Code != "ABC123" || grant.InvitedBy != "host" {
		t.Fatalf("grant = %+v", grant)
	}
	if grant.ExpiresAt.Before(time.Now()) {
		t.Fatalf("grant already expired: %v", grant.ExpiresAt)
	}
}

func TestVerifyRejects(t *testing.T) {
	svc := NewService("test-secret", "bluff", time.Hour)
	good, err := svc.Issue("room-1", "ABC123", "host")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	expired := NewService("test-secret", "bluff", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue("room-1", "ABC123", "host")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	otherIssuer, err := NewService("test-secret", "someone-else", time.Hour).Issue("room-1", "ABC123", "host")
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	tests := []struct {
		name  string
		svc   *Service
		token string
	}{
		{name: "wrong secret", svc: NewService("other-secret", "bluff", time.Hour), token: good},
		{name: "expired", svc: svc, token: old},
		{name: "wrong issuer", svc: svc, token: otherIssuer},
		{name: "garbage", svc: svc, token: "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Verify() err = %v, want %v", err, ErrInvalidToken)
			}
		})
	}
}

func TestIssueRequiresConfig(t *testing.T) {
	if _, err := NewService("", "bluff", 0).Issue("room-1", "ABC123", "host"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Issue() err = %v, want %v", err, ErrNotConfigured)
	}
	if _, err := NewService("secret", "bluff", 0).Issue("", "ABC123", "host"); err == nil {
		t.Fatal("expected error for missing room")
	}
}

func parseClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	return claims
}

func stringClaim(t *testing.T, claims jwt.MapClaims, name string) string {
	t.Helper()
	value, ok := claims[name]
	if !ok {
		t.Fatalf("missing %s claim", name)
	}
	str, ok := value.(string)
	if !ok {
		t.Fatalf("%s claim is not a string", name)
	}
	return str
}
