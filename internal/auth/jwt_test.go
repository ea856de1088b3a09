package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestBuildAndParseJWT(t *testing.T) {
	secret := []byte("test-secret-min-32-chars-long!!!!")
	userID := uuid.New().String()
	meta := UserMetadata{Name: "Ana", UserType: UserTypeProfessional, ProfessionalType: "doula"}
	tok, err := BuildJWT(secret, userID, "ana@nascere.local", meta, time.Hour)
	if err != nil {
		t.Fatalf("BuildJWT: %v", err)
	}
	claims, err := ParseJWT(secret, tok)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID() != userID || claims.Email != "ana@nascere.local" || claims.Role != RoleAuthenticated {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.UserMetadata != meta {
		t.Fatalf("user_metadata: %+v", claims.UserMetadata)
	}
}

func TestParseJWT_Expired(t *testing.T) {
	secret := []byte("test-secret-min-32-chars-long!!!!")
	tok, err := BuildJWT(secret, "u1", "", UserMetadata{}, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT(secret, tok); err == nil {
		t.Fatal("token expirado deveria falhar")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok, _ := BuildJWT([]byte("secret-a-min-32-chars-long!!!!!!"), "u1", "", UserMetadata{}, time.Hour)
	if _, err := ParseJWT([]byte("secret-b-min-32-chars-long!!!!!!"), tok); err == nil {
		t.Fatal("secret diferente deveria falhar")
	}
}

func TestParseJWT_RejectsOtherAlg(t *testing.T) {
	secret := []byte("test-secret-min-32-chars-long!!!!")
	c := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT(secret, tok); err == nil {
		t.Fatal("HS512 não é aceito")
	}
}

func TestParseJWT_MissingSubject(t *testing.T) {
	secret := []byte("test-secret-min-32-chars-long!!!!")
	tok, _ := BuildJWT(secret, "", "", UserMetadata{}, time.Hour)
	if _, err := ParseJWT(secret, tok); err == nil {
		t.Fatal("token sem sub deveria falhar")
	}
}

func TestContextHelpers(t *testing.T) {
	id := uuid.New()
	ctx := WithClaims(context.Background(), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
		UserMetadata:     UserMetadata{UserType: UserTypePatient},
	})
	got, ok := UserUUIDFrom(ctx)
	if !ok || got != id {
		t.Fatalf("UserUUIDFrom = %v %v", got, ok)
	}
	if UserTypeFrom(ctx) != UserTypePatient {
		t.Errorf("UserTypeFrom = %q", UserTypeFrom(ctx))
	}
	if _, ok := UserUUIDFrom(context.Background()); ok {
		t.Error("contexto vazio não tem usuário")
	}
}
