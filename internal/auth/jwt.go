package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Tipos de usuário gravados pelo provedor de autenticação em user_metadata.
const (
	UserTypeProfessional = "professional"
	UserTypePatient      = "patient"
)

// RoleAuthenticated é o role padrão de sessões do provedor de autenticação.
const RoleAuthenticated = "authenticated"

type UserMetadata struct {
	Name             string `json:"name,omitempty"`
	UserType         string `json:"user_type,omitempty"`
	ProfessionalType string `json:"professional_type,omitempty"`
}

// Claims segue o formato do token de sessão do provedor: sub = id do usuário.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

func (c *Claims) UserID() string { return c.Subject }

// BuildJWT emite um token no mesmo formato do provedor. Usado em testes e no seed de dev.
func BuildJWT(secret []byte, userID, email string, meta UserMetadata, exp time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
		Email:        email,
		Role:         RoleAuthenticated,
		UserMetadata: meta,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func ParseJWT(secret []byte, tokenString string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.Subject != "" {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
