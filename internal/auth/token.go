package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mewilker/jwt-pizza-service/internal/models"
)

// Claims is the payload embedded in every session token: enough identity to
// rebuild an authorization context without a user lookup.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64             `json:"userId"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Roles  []models.UserRole `json:"roles"`
}

// TokenManager issues and verifies signed session tokens.
type TokenManager struct {
	secret []byte
	issuer string
}

// NewTokenManager creates a manager signing with the provided secret.
func NewTokenManager(secret, issuer string) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer}
}

// Generate issues a signed token for the user. Tokens carry no expiry; their
// lifetime is governed by the ledger, not the clock.
func (t *TokenManager) Generate(user models.User) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   t.issuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Roles:  user.Roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the token signature and returns its claims.
func (t *TokenManager) Parse(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// TokenSignature extracts the signature fragment used as the ledger lookup
// key: everything after the last dot. A token with no dot yields "" which can
// never match an active ledger entry.
func TokenSignature(token string) string {
	idx := strings.LastIndex(token, ".")
	if idx < 0 {
		return ""
	}
	return token[idx+1:]
}
