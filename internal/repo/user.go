package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tipos de profissional; cada paciente tem no máximo um de cada na equipe.
const (
	ProfessionalObstetra   = "obstetra"
	ProfessionalEnfermeiro = "enfermeiro"
	ProfessionalDoula      = "doula"
)

func ValidProfessionalType(t string) bool {
	return t == ProfessionalObstetra || t == ProfessionalEnfermeiro || t == ProfessionalDoula
}

type User struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	UserType         string    `json:"user_type"`
	ProfessionalType *string   `json:"professional_type"`
	Phone            *string   `json:"phone"`
	AvatarURL        *string   `json:"avatar_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const userColumns = `id, name, email, user_type, professional_type, phone, avatar_url, created_at, updated_at`

// EnsureUser cria o perfil na primeira request do usuário (o provedor de auth não escreve no nosso banco).
func EnsureUser(ctx context.Context, db *gorm.DB, u User) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO users (id, name, email, user_type, professional_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, u.ID, u.Name, u.Email, u.UserType, u.ProfessionalType).Error
}

func ProfileByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*User, error) {
	var u User
	err := db.WithContext(ctx).Raw(`SELECT `+userColumns+` FROM users WHERE id = ?`, id).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

// UpdateProfile altera apenas os campos não nil.
func UpdateProfile(ctx context.Context, db *gorm.DB, id uuid.UUID, name, phone, avatarURL *string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE users SET
			name = COALESCE(?, name),
			phone = COALESCE(?, phone),
			avatar_url = COALESCE(?, avatar_url),
			updated_at = now()
		WHERE id = ?
	`, name, phone, avatarURL, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func SetProfessionalType(ctx context.Context, db *gorm.DB, id uuid.UUID, professionalType string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE users SET professional_type = ?, updated_at = now() WHERE id = ? AND user_type = 'professional'
	`, professionalType, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SearchProfessionals busca por nome ou e-mail (convite direto), excluindo o próprio usuário.
// types vazio não filtra por tipo de profissional.
func SearchProfessionals(ctx context.Context, db *gorm.DB, query string, types []string, excludeID uuid.UUID, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 8
	}
	like := "%" + escapeLike(query) + "%"
	q := `SELECT ` + userColumns + ` FROM users
		WHERE user_type = 'professional' AND id <> ?
		  AND (name ILIKE ? OR email ILIKE ?)`
	args := []interface{}{excludeID, like, like}
	if len(types) > 0 {
		q += ` AND professional_type IN ?`
		args = append(args, types)
	}
	q += ` ORDER BY name LIMIT ?`
	args = append(args, limit)
	var list []User
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}
