package services

import (
	"errors"
	"strings"
	"time"

	"zapdesk/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jinzhu/gorm"
)

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrNoTenant     = errors.New("User has no company")
)

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier valida os access tokens HS256 emitidos pelo provedor de identidade.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify devolve o principal (claim sub) de um token válido e não expirado.
func (v *TokenVerifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		return "", ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

// Sign emite um token para o principal; usado por ferramentas de operação e testes.
func (v *TokenVerifier) Sign(subject string, ttl time.Duration) (string, error) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TenantResolver resolve a company dona do principal autenticado.
// Principal sem profile é tratado como não autenticado.
type TenantResolver struct {
	db *gorm.DB
}

func NewTenantResolver(database *gorm.DB) *TenantResolver {
	return &TenantResolver{db: database}
}

func (r *TenantResolver) Resolve(userID string) (string, error) {
	var profile models.Profile
	if err := r.db.Where("id = ?", userID).First(&profile).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return "", ErrUnauthorized
		}
		return "", &StoreError{Op: "find profile", Err: err}
	}
	if strings.TrimSpace(profile.TenantID) == "" {
		return "", ErrNoTenant
	}
	return profile.TenantID, nil
}
