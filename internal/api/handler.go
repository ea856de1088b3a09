package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/otaviolbarbosa/nascere/internal/auth"
	"github.com/otaviolbarbosa/nascere/internal/cache"
	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/otaviolbarbosa/nascere/internal/crypto"
	"github.com/otaviolbarbosa/nascere/internal/middleware"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgUnauthorized   = "Não autorizado"
	msgForbidden      = "Acesso negado"
	msgInternal       = "Erro interno do servidor"
	msgInvalidBody    = "Dados inválidos"
	msgPatientMissing = "Paciente não encontrado"
	msgNoStorage      = "Armazenamento não configurado"
)

// ObjectStore é o subconjunto do storage.S3 usado pelos handlers.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Notifier dispara notificações em background (notify.Service).
type Notifier interface {
	Go(patientID, actorID uuid.UUID, msg notify.Message)
	GoUsers(userIDs []uuid.UUID, msg notify.Message)
}

type Handler struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Logger  *zap.Logger
	Cache   cache.Store
	Storage ObjectStore
	Notify  Notifier
	Sealer  *crypto.Sealer
	// Now permite fixar o relógio nos testes.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// today é a data corrente no fuso da aplicação.
func (h *Handler) today() time.Time {
	loc := time.UTC
	if h.Cfg != nil {
		loc = h.Cfg.Location()
	}
	t := h.now().In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *Handler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handler) notifyTeam(patientID, actorID uuid.UUID, msg notify.Message) {
	if h.Notify != nil {
		h.Notify.Go(patientID, actorID, msg)
	}
}

func (h *Handler) notifyUsers(ids []uuid.UUID, msg notify.Message) {
	if h.Notify != nil {
		h.Notify.GoUsers(ids, msg)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// internalError loga, reporta ao Sentry e responde 500 com a mensagem genérica.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, where string, err error) {
	h.log().Error("["+where+"] request failed",
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("handler", where)
			scope.SetTag("request_id", middleware.RequestIDFromContext(r.Context()))
			hub.CaptureException(err)
		})
	}
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(v)
}

// currentUser retorna o id do usuário autenticado; responde 401 se ausente.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserUUIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID lê uma variável de rota como uuid; responde 400 se inválida.
func pathUUID(w http.ResponseWriter, r *http.Request, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, msg)
		return uuid.Nil, false
	}
	return id, true
}

// requireMember garante que o usuário está na equipe da paciente (403 caso contrário).
func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request, patientID, userID uuid.UUID) bool {
	ok, err := repo.IsTeamMember(r.Context(), h.DB, patientID, userID)
	if err != nil {
		h.internalError(w, r, "team", err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, msgForbidden)
		return false
	}
	return true
}

// memberOfPatientParam combina usuário, {id} da rota e checagem de equipe.
func (h *Handler) memberOfPatientParam(w http.ResponseWriter, r *http.Request) (userID, patientID uuid.UUID, ok bool) {
	if userID, ok = currentUser(w, r); !ok {
		return
	}
	if patientID, ok = pathUUID(w, r, "id", "ID do paciente inválido"); !ok {
		return
	}
	ok = h.requireMember(w, r, patientID, userID)
	return
}

// profile carrega o perfil do usuário, criando-o a partir das claims no primeiro acesso.
func (h *Handler) profile(ctx context.Context, userID uuid.UUID) (*repo.User, error) {
	u, err := repo.ProfileByID(ctx, h.DB, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := auth.ClaimsFrom(ctx)
	if c == nil {
		return nil, err
	}
	nu := repo.User{ID: userID, Name: c.UserMetadata.Name, Email: c.Email, UserType: c.UserMetadata.UserType}
	if nu.UserType == "" {
		nu.UserType = auth.UserTypeProfessional
	}
	if nu.Name == "" {
		nu.Name = c.Email
	}
	if repo.ValidProfessionalType(c.UserMetadata.ProfessionalType) {
		pt := c.UserMetadata.ProfessionalType
		nu.ProfessionalType = &pt
	}
	if err := repo.EnsureUser(ctx, h.DB, nu); err != nil {
		return nil, err
	}
	return repo.ProfileByID(ctx, h.DB, userID)
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
