package services

import (
	"errors"
	"testing"
	"time"

	"zapdesk/models"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("segredo")
	token, err := v.Sign("user-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := v.Verify(token)
	if err != nil || sub != "user-1" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}

	if _, err := NewTokenVerifier("outro").Verify(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong secret: err = %v", err)
	}

	expired, _ := v.Sign("user-1", -time.Minute)
	if _, err := v.Verify(expired); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired: err = %v", err)
	}

	if _, err := v.Verify(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty: err = %v", err)
	}
}

func TestTokenVerifierRequiresExpiration(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("segredo"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenVerifier("segredo").Verify(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("token without exp accepted: %v", err)
	}
}

func TestTenantResolver(t *testing.T) {
	database := newTestDB(t)
	database.Create(&models.Company{ID: "c1", Name: "Loja"})
	database.Create(&models.Profile{ID: "user-1", TenantID: "c1"})
	database.Create(&models.Profile{ID: "user-2"})
	r := NewTenantResolver(database)

	if tenant, err := r.Resolve("user-1"); err != nil || tenant != "c1" {
		t.Fatalf("Resolve(user-1) = %q, %v", tenant, err)
	}
	if _, err := r.Resolve("user-2"); !errors.Is(err, ErrNoTenant) {
		t.Fatalf("user without company: err = %v", err)
	}
	if _, err := r.Resolve("ninguem"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown user: err = %v", err)
	}
}
