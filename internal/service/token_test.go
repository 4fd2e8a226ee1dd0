package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:      "test-secret-key-for-testing-only",
		Issuer:      "test-issuer",
		ExpiryHours: 1,
	}
}

func TestTokenService_IssueAndParse(t *testing.T) {
	tokens := NewTokenService(testJWTConfig())
	user := &domain.User{ID: domain.UserID("user-1")}

	signed, expiresAt, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("expiry should be in the future")
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %s", claims.UserID)
	}
	if claims.ID == "" {
		t.Error("token should carry a jti")
	}
}

func TestTokenService_Parse_Rejects(t *testing.T) {
	tokens := NewTokenService(testJWTConfig())
	user := &domain.User{ID: domain.UserID("user-1")}

	otherCfg := testJWTConfig()
	otherCfg.Secret = "another-secret"
	foreign, _, err := NewTokenService(otherCfg).Issue(user)
	if err != nil {
		t.Fatal(err)
	}

	otherCfg = testJWTConfig()
	otherCfg.Issuer = "someone-else"
	wrongIssuer, _, err := NewTokenService(otherCfg).Issue(user)
	if err != nil {
		t.Fatal(err)
	}

	expiredSvc := NewTokenService(testJWTConfig())
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredSvc.Issue(user)
	if err != nil {
		t.Fatal(err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"wrong issuer", wrongIssuer},
		{"expired", expired},
		{"alg none", none},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRevocations(t *testing.T) {
	r := NewRevocations(time.Minute, testLogger())

	r.Revoke("jti-1", time.Now().Add(time.Hour))
	r.Revoke("", time.Now().Add(time.Hour))

	if !r.IsRevoked("jti-1") {
		t.Error("jti-1 should be revoked")
	}
	if r.IsRevoked("jti-2") || r.IsRevoked("") {
		t.Error("unknown or empty jti should not be revoked")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRevocations_Purge(t *testing.T) {
	r := NewRevocations(time.Minute, testLogger())
	r.Revoke("old", time.Now().Add(-time.Minute))
	r.Revoke("live", time.Now().Add(time.Hour))

	if r.IsRevoked("old") {
		t.Error("entry past its expiry should not count as revoked")
	}
	if removed := r.Purge(); removed != 1 {
		t.Errorf("Purge() = %d, want 1", removed)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestServices_StartStop(t *testing.T) {
	cfg := &config.Config{JWT: testJWTConfig()}
	cfg.Session.CleanupInterval = 1

	svcs := NewServices(nil, cfg, testLogger())
	svcs.Start()
	svcs.Start()
	svcs.Stop()
	svcs.Stop()
}
