package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const claimsKey contextKey = "claims"

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) *Claims {
	if c, _ := ctx.Value(claimsKey).(*Claims); c != nil {
		return c
	}
	return nil
}

func UserIDFrom(ctx context.Context) string {
	c := ClaimsFrom(ctx)
	if c == nil {
		return ""
	}
	return c.UserID()
}

// UserUUIDFrom retorna o id do usuário como uuid; false se ausente ou inválido.
func UserUUIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFrom(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func UserTypeFrom(ctx context.Context) string {
	c := ClaimsFrom(ctx)
	if c == nil {
		return ""
	}
	return c.UserMetadata.UserType
}
