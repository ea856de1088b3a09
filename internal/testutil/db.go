// Package testutil abre o banco dos testes de integração (DATABASE_URL) com as migrations aplicadas.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/migrate"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"github.com/otaviolbarbosa/nascere/migrations"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB pula o teste quando DATABASE_URL não está definido.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Run(context.Background(), db, migrations.FS, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewProfessional cria um profissional com e-mail único.
func NewProfessional(t *testing.T, db *gorm.DB, professionalType string) repo.User {
	t.Helper()
	id := uuid.New()
	u := repo.User{
		ID:               id,
		Name:             "Prof " + id.String()[:8],
		Email:            id.String() + "@test.local",
		UserType:         "professional",
		ProfessionalType: &professionalType,
	}
	if err := repo.EnsureUser(context.Background(), db, u); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	return u
}

// NewPatient cria uma paciente com o criador na equipe.
func NewPatient(t *testing.T, db *gorm.DB, creator repo.User) *repo.Patient {
	t.Helper()
	p := &repo.Patient{Name: "Paciente " + uuid.NewString()[:8], Phone: "11999999999", CreatedBy: creator.ID}
	if err := repo.CreatePatientWithCreator(context.Background(), db, p, *creator.ProfessionalType); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}
