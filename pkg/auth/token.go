// Package auth verifies access tokens issued by the external auth service.
// The lot service never issues credentials; it only validates the bearer
// token on each request and extracts the caller's identity and agency scope.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flowlytix/distribution-backend/pkg/config"
	"github.com/flowlytix/distribution-backend/pkg/errors"
)

// Claims represents the verified token claims
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`

	// Agency scope - every request operates within one agency
	AgencyID   string `json:"agency_id"`
	AgencyName string `json:"agency_name,omitempty"`
}

// Verifier validates access tokens
type Verifier struct {
	config *config.AuthConfig
}

// NewVerifier creates a new token verifier
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	return &Verifier{config: cfg}
}

// Verify validates an access token string and returns its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("invalid token")
		}
		return []byte(v.config.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Unauthorized("token has expired")
		}
		return nil, errors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.Unauthorized("invalid token")
	}

	return claims, nil
}

// UserInfo contains the identity fields embedded in issued test tokens
type UserInfo struct {
	ID          string
	Email       string
	Name        string
	Role        string
	Permissions []string
	AgencyID    string
	AgencyName  string
}

// Issue signs a short-lived token for the given user. The production
// issuer lives in the auth service; this is used by local tooling and tests.
func (v *Verifier) Issue(user *UserInfo, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: user.Permissions,
		AgencyID:    user.AgencyID,
		AgencyName:  user.AgencyName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.config.Secret))
}
