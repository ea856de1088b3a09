package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run aplica, em ordem de nome, os .sql de fsys ainda não registrados em schema_migrations.
// Cada arquivo roda na mesma transação que o registra: uma falha não deixa migração pela metade.
func Run(ctx context.Context, db *gorm.DB, fsys fs.FS, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ensureSchemaMigrations(ctx, db); err != nil {
		return fmt.Errorf("schema_migrations: %w", err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	names, err := Pending(fsys, applied)
	if err != nil {
		return err
	}
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		version := strings.TrimSuffix(name, ".sql")
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(string(raw)).Error; err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
			if err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version).Error; err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.Info("[migrate] applied", zap.String("version", version))
	}
	return nil
}

// Pending lista os arquivos .sql de fsys que não estão em applied, ordenados.
func Pending(fsys fs.FS, applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		if applied[strings.TrimSuffix(e.Name(), ".sql")] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func ensureSchemaMigrations(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`).Error
}

func appliedVersions(ctx context.Context, db *gorm.DB) (map[string]bool, error) {
	var rows []struct {
		Version string `gorm:"column:version"`
	}
	if err := db.WithContext(ctx).Raw("SELECT version FROM schema_migrations").Scan(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]bool)
	for _, r := range rows {
		m[r.Version] = true
	}
	return m, nil
}
