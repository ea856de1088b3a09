package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/otaviolbarbosa/nascere/internal/auth"
	"github.com/otaviolbarbosa/nascere/internal/cache"
	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testSecret = []byte("test-secret-with-at-least-32-chars!!")

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	h      *Handler
	mock   sqlmock.Sqlmock
	router *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	h := &Handler{
		DB:  db,
		Cfg: &config.Config{AppPublicURL: "https://app.nascere.local", Timezone: "UTC"},
		Now: func() time.Time { return fixedNow },
	}
	r := mux.NewRouter()
	h.Mount(r, testSecret)
	return &testEnv{h: h, mock: mock, router: r}
}

func token(t *testing.T, userID uuid.UUID, userType string) string {
	t.Helper()
	tok, err := auth.BuildJWT(testSecret, userID.String(), "ana@nascere.local",
		auth.UserMetadata{Name: "Ana", UserType: userType}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func expectMember(mock sqlmock.Sqlmock, member bool) {
	n := 0
	if member {
		n = 1
	}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM team_members`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func expectProfile(mock sqlmock.Sqlmock, id uuid.UUID, userType string, professionalType interface{}) {
	mock.ExpectQuery(`FROM users WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "user_type", "professional_type"}).
			AddRow(id.String(), "Ana", "ana@nascere.local", userType, professionalType))
}

func TestRoutes_RequireToken(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/api/me", "/api/patients", "/api/billings", "/api/notifications"} {
		rec := e.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := e.do(t, http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBillings_PatientUserForbidden(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/billings", token(t, uuid.New(), auth.UserTypePatient), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetPatient_NotFoundBeforeMembership(t *testing.T) {
	e := newTestEnv(t)
	e.mock.ExpectQuery(`FROM patients p WHERE p.id = `).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := e.do(t, http.MethodGet, "/api/patients/"+uuid.NewString(), token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgPatientMissing, errorOf(t, rec))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestGetPatient_NotMember(t *testing.T) {
	e := newTestEnv(t)
	patientID, creator := uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM patients p WHERE p.id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone", "created_by"}).
			AddRow(patientID.String(), "Maria", "11999999999", creator.String()))
	expectMember(e.mock, false)

	rec := e.do(t, http.MethodGet, "/api/patients/"+patientID.String(), token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestGetPatient_InvalidID(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/patients/abc", token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePatient_RequiresProfessionalType(t *testing.T) {
	e := newTestEnv(t)
	userID := uuid.New()
	expectProfile(e.mock, userID, auth.UserTypeProfessional, nil)

	rec := e.do(t, http.MethodPost, "/api/patients", token(t, userID, ""), map[string]string{
		"name": "Maria", "phone": "11999999999",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Tipo de profissional não definido no perfil", errorOf(t, rec))
}

func TestCreatePatient_Success(t *testing.T) {
	e := newTestEnv(t)
	userID, patientID := uuid.New(), uuid.New()
	expectProfile(e.mock, userID, auth.UserTypeProfessional, "doula")
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`INSERT INTO patients`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(patientID.String(), fixedNow))
	e.mock.ExpectExec(`INSERT INTO team_members`).
		WithArgs(patientID, userID, "doula").
		WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectCommit()

	rec := e.do(t, http.MethodPost, "/api/patients", token(t, userID, ""), map[string]string{
		"name": "Maria", "phone": "(11) 99999-9999", "dum": "2026-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Patient struct {
			ID        string `json:"id"`
			DueDate   string `json:"due_date"`
			Weeks     int    `json:"weeks"`
			Days      int    `json:"days"`
			Trimester int    `json:"trimester"`
		} `json:"patient"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, patientID.String(), body.Patient.ID)
	// DUM 01/01 → 68 dias em 10/03 = 9s5d; DPP = DUM + 280.
	assert.Equal(t, 9, body.Patient.Weeks)
	assert.Equal(t, 5, body.Patient.Days)
	assert.Equal(t, 1, body.Patient.Trimester)
	assert.Contains(t, body.Patient.DueDate, "2026-10-08")
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func inviteRow(id, patientID, invitedBy uuid.UUID, status string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "patient_id", "invited_by", "invited_professional_id", "status",
		"expires_at", "created_at", "patient_name", "inviter_name"}).
		AddRow(id.String(), patientID.String(), invitedBy.String(), nil, status, expiresAt, fixedNow, "Maria", "Bia")
}

func TestRespondInvite_Expired(t *testing.T) {
	e := newTestEnv(t)
	inviteID := uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, uuid.New(), uuid.New(), "pendente", fixedNow.Add(-time.Hour)))
	e.mock.ExpectExec(`UPDATE team_invites SET status = `).
		WithArgs("expirado", inviteID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, uuid.New(), ""),
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Convite expirado", errorOf(t, rec))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestRespondInvite_AlreadyAnswered(t *testing.T) {
	e := newTestEnv(t)
	inviteID := uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, uuid.New(), uuid.New(), "aceito", fixedNow.Add(time.Hour)))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, uuid.New(), ""),
		map[string]string{"action": "reject"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondInvite_InvalidAction(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPut, "/api/team/invites/"+uuid.NewString(), token(t, uuid.New(), ""),
		map[string]string{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Ação inválida", errorOf(t, rec))
}

func TestRespondInvite_RoleTakenConflict(t *testing.T) {
	e := newTestEnv(t)
	inviteID, patientID, userID := uuid.New(), uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, patientID, uuid.New(), "pendente", fixedNow.Add(24*time.Hour)))
	expectProfile(e.mock, userID, auth.UserTypeProfessional, "obstetra")
	expectMember(e.mock, false)
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`UPDATE team_invites`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id"}).AddRow(patientID.String()))
	e.mock.ExpectExec(`INSERT INTO team_members`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "team_members_patient_type_key"})
	e.mock.ExpectRollback()
	e.mock.ExpectExec(`SET status = 'rejeitado'`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, userID, ""),
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, errorOf(t, rec), "obstetra")
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestRespondInvite_DirectInviteHiddenFromOthers(t *testing.T) {
	e := newTestEnv(t)
	inviteID, target := uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invited_by", "invited_professional_id", "status", "expires_at"}).
			AddRow(inviteID.String(), uuid.NewString(), target.String(), "pendente", fixedNow.Add(time.Hour)))

	rec := e.do(t, http.MethodGet, "/api/invites/"+inviteID.String(), token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondInvite_InviterCannotAnswer(t *testing.T) {
	e := newTestEnv(t)
	inviteID, inviter, target := uuid.New(), uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "invited_by", "invited_professional_id", "status", "expires_at"}).
			AddRow(inviteID.String(), uuid.NewString(), inviter.String(), target.String(), "pendente", fixedNow.Add(time.Hour)))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, inviter, ""),
		map[string]string{"action": "reject"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestRespondInvite_InviterCannotAcceptOwnLink(t *testing.T) {
	e := newTestEnv(t)
	inviteID, inviter := uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, uuid.New(), inviter, "pendente", fixedNow.Add(time.Hour)))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, inviter, ""),
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestRespondInvite_MemberKeepsLinkPending(t *testing.T) {
	e := newTestEnv(t)
	inviteID, userID := uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, uuid.New(), uuid.New(), "pendente", fixedNow.Add(time.Hour)))
	expectProfile(e.mock, userID, auth.UserTypeProfessional, "doula")
	expectMember(e.mock, true)

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, userID, ""),
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, msgAlreadyMember, errorOf(t, rec))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestRespondInvite_ExpiresBeforeUpdate(t *testing.T) {
	e := newTestEnv(t)
	inviteID, patientID, userID := uuid.New(), uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, patientID, uuid.New(), "pendente", fixedNow.Add(time.Millisecond)))
	expectProfile(e.mock, userID, auth.UserTypeProfessional, "doula")
	expectMember(e.mock, false)
	e.mock.ExpectBegin()
	e.mock.ExpectQuery(`UPDATE team_invites`).WillReturnRows(sqlmock.NewRows([]string{"patient_id"}))
	e.mock.ExpectRollback()
	// releitura: o prazo passou entre a checagem e o UPDATE
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, patientID, uuid.New(), "pendente", fixedNow.Add(-time.Second)))
	e.mock.ExpectExec(`UPDATE team_invites SET status = `).
		WithArgs("expirado", inviteID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, userID, ""),
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Convite expirado", errorOf(t, rec))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestRespondInvite_AnsweredConcurrently(t *testing.T) {
	e := newTestEnv(t)
	inviteID, patientID, userID := uuid.New(), uuid.New(), uuid.New()
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, patientID, uuid.New(), "pendente", fixedNow.Add(time.Hour)))
	expectProfile(e.mock, userID, auth.UserTypeProfessional, "doula")
	e.mock.ExpectExec(`SET status = 'rejeitado'`).WillReturnResult(sqlmock.NewResult(0, 0))
	e.mock.ExpectQuery(`FROM team_invites i`).
		WillReturnRows(inviteRow(inviteID, patientID, uuid.New(), "aceito", fixedNow.Add(time.Hour)))

	rec := e.do(t, http.MethodPut, "/api/team/invites/"+inviteID.String(), token(t, userID, ""),
		map[string]string{"action": "reject"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Convite já respondido", errorOf(t, rec))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestCreateDirectInvite_RoleTaken(t *testing.T) {
	e := newTestEnv(t)
	patientID, target := uuid.New(), uuid.New()
	expectMember(e.mock, true)
	expectProfile(e.mock, target, auth.UserTypeProfessional, "doula")
	expectMember(e.mock, false)
	e.mock.ExpectQuery(`SELECT professional_type FROM team_members`).
		WillReturnRows(sqlmock.NewRows([]string{"professional_type"}).AddRow("doula").AddRow("obstetra"))

	rec := e.do(t, http.MethodPost, "/api/patients/"+patientID.String()+"/invites/direct", token(t, uuid.New(), ""),
		map[string]string{"professional_id": target.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Já existe um doula na equipe desta paciente", errorOf(t, rec))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestSubscribe_CreatesProfileFirst(t *testing.T) {
	e := newTestEnv(t)
	userID := uuid.New()
	e.mock.ExpectQuery(`FROM users WHERE id = `).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	e.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(userID, "Ana", "ana@nascere.local", auth.UserTypeProfessional, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectProfile(e.mock, userID, auth.UserTypeProfessional, nil)
	e.mock.ExpectQuery(`INSERT INTO "push_subscriptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	rec := e.do(t, http.MethodPost, "/api/notifications/subscriptions", token(t, userID, ""),
		map[string]string{"fcm_token": "tok-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestNotificationSettings_ProfileLookupFails(t *testing.T) {
	e := newTestEnv(t)
	e.mock.ExpectQuery(`FROM users WHERE id = `).WillReturnError(errors.New("connection reset"))

	rec := e.do(t, http.MethodGet, "/api/notifications/settings", token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestCreateBilling_Validation(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, uuid.New(), auth.UserTypeProfessional)
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"patient_id":        uuid.NewString(),
			"description":       "Acompanhamento",
			"total_amount":      150000,
			"payment_method":    "pix",
			"installment_count": 3,
			"installment_unit":  "month",
			"first_due_date":    "2026-04-10",
		}
	}
	cases := []struct {
		name   string
		mutate func(m map[string]interface{})
		want   string
	}{
		{"zero amount", func(m map[string]interface{}) { m["total_amount"] = 0 }, "O valor total deve ser maior que zero"},
		{"bad method", func(m map[string]interface{}) { m["payment_method"] = "cheque" }, "Forma de pagamento inválida"},
		{"no description", func(m map[string]interface{}) { m["description"] = " " }, "Descrição é obrigatória"},
		{"bad due date", func(m map[string]interface{}) { m["first_due_date"] = "10/04/2026" }, "Data do primeiro vencimento inválida"},
		{"bad patient", func(m map[string]interface{}) { m["patient_id"] = "x" }, "ID do paciente inválido"},
		{"huge count", func(m map[string]interface{}) { m["installment_count"] = 1 << 40 }, "Número de parcelas inválido"},
		{"count above limit", func(m map[string]interface{}) { m["installment_count"] = 121 }, "Número de parcelas inválido"},
		{"zero cent installments", func(m map[string]interface{}) { m["total_amount"] = 3; m["installment_count"] = 5 }, "Número de parcelas inválido"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			body := base()
			c.mutate(body)
			rec := e.do(t, http.MethodPost, "/api/billings", tok, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, c.want, errorOf(t, rec))
		})
	}
}

func TestCreateBilling_NotMember(t *testing.T) {
	e := newTestEnv(t)
	expectMember(e.mock, false)
	rec := e.do(t, http.MethodPost, "/api/billings", token(t, uuid.New(), auth.UserTypeProfessional), map[string]interface{}{
		"patient_id":     uuid.NewString(),
		"description":    "Parto",
		"total_amount":   300000,
		"payment_method": "boleto",
		"first_due_date": "2026-04-10",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestBillingMetrics_Cached(t *testing.T) {
	e := newTestEnv(t)
	store := cache.New(time.Minute)
	t.Cleanup(store.Close)
	e.h.Cache = store
	tok := token(t, uuid.New(), auth.UserTypeProfessional)

	e.mock.ExpectQuery(`FROM billings b`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	first := e.do(t, http.MethodGet, "/api/billings/metrics?period=last_month", tok, nil)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := e.do(t, http.MethodGet, "/api/billings/metrics?period=last_month", tok, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestBillingMetrics_InvalidPeriod(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/billings/metrics?period=forever", token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Período inválido", errorOf(t, rec))
}

func TestUnreadCount_CachedUntilRead(t *testing.T) {
	e := newTestEnv(t)
	store := cache.New(time.Minute)
	t.Cleanup(store.Close)
	e.h.Cache = store
	userID := uuid.New()
	tok := token(t, userID, "")

	e.mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodGet, "/api/notifications/unread-count", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"count":3}`, rec.Body.String())
	}

	e.mock.ExpectExec(`UPDATE "notifications"`).WillReturnResult(sqlmock.NewResult(0, 3))
	rec := e.do(t, http.MethodPost, "/api/notifications/read", tok, map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	e.mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	rec = e.do(t, http.MethodGet, "/api/notifications/unread-count", tok, nil)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestMarkRead_InvalidID(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/notifications/read", token(t, uuid.New(), ""),
		map[string]interface{}{"ids": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEvolution_EmptyContent(t *testing.T) {
	e := newTestEnv(t)
	expectMember(e.mock, true)
	rec := e.do(t, http.MethodPost, "/api/patients/"+uuid.NewString()+"/evolutions", token(t, uuid.New(), ""),
		map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "O conteúdo da evolução é obrigatório", errorOf(t, rec))
}

func TestUploadDocument_NoStorage(t *testing.T) {
	e := newTestEnv(t)
	expectMember(e.mock, true)
	rec := e.do(t, http.MethodPost, "/api/patients/"+uuid.NewString()+"/documents", token(t, uuid.New(), ""), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, msgNoStorage, errorOf(t, rec))
}

func TestCreateAppointment_RequiresDateAndTime(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/api/appointments", token(t, uuid.New(), ""), map[string]string{
		"patient_id": uuid.NewString(),
		"date":       "2026-03-12",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Data e horário são obrigatórios", errorOf(t, rec))
}

func TestSearchUsers_ShortQuery(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/api/users/search?q=a", token(t, uuid.New(), ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}
