package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/auth"
	"github.com/otaviolbarbosa/nascere/internal/gestation"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
)

// homePatientsLimit é quantas pacientes aparecem na home.
const homePatientsLimit = 5

// patientView acrescenta à paciente os dados gestacionais calculados na data corrente.
type patientView struct {
	repo.Patient
	GestationalAge *gestation.Age `json:"gestational_age"`
	Weeks          int            `json:"weeks"`
	Days           int            `json:"days"`
	Trimester      int            `json:"trimester,omitempty"`
	RemainingDays  int            `json:"remaining_days"`
	Progress       int            `json:"progress"`
}

func (h *Handler) viewPatient(p repo.Patient) patientView {
	today := h.today()
	v := patientView{Patient: p}
	if age := gestation.Calculate(p.Dum, today); age != nil {
		v.GestationalAge = age
		v.Weeks = age.Weeks
		v.Days = age.Days
		v.Trimester = gestation.Trimester(age.Weeks)
		v.Progress = gestation.Clamp(gestation.Progress(age.TotalDays))
	}
	v.RemainingDays = gestation.RemainingDays(p.DueDate, today)
	return v
}

func (h *Handler) viewPatients(list []repo.Patient) []patientView {
	out := make([]patientView, len(list))
	for i := range list {
		out[i] = h.viewPatient(list[i])
	}
	return out
}

// ListPatients: pacientes da equipe do profissional, com filtro gestacional, busca e paginação (10 por página).
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter, err := gestation.ParseFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Filtro inválido")
		return
	}
	page := 1
	if s := q.Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			page = n
		}
	}
	offset := (page - 1) * PatientsPageSize
	list, total, err := repo.PatientsForMember(r.Context(), h.DB, userID, repo.PatientQuery{
		Filter: filter,
		Search: q.Get("search"),
		Limit:  PatientsPageSize,
		Offset: offset,
		Today:  h.today(),
	})
	if err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": h.viewPatients(list),
		"total":    total,
		"page":     page,
		"limit":    PatientsPageSize,
		"has_more": int64(offset+len(list)) < total,
	})
}

// HomePatients: as primeiras pacientes do filtro, já com idade gestacional, para a home.
func (h *Handler) HomePatients(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter, err := gestation.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Filtro inválido")
		return
	}
	list, total, err := repo.PatientsForMember(r.Context(), h.DB, userID, repo.PatientQuery{
		Filter: filter,
		Search: r.URL.Query().Get("search"),
		Limit:  homePatientsLimit,
		Today:  h.today(),
	})
	if err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patients": h.viewPatients(list),
		"total":    total,
	})
}

// CreatePatient cadastra a paciente e coloca o profissional na equipe (mesma transação).
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	prof, err := h.profile(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	if prof.UserType != auth.UserTypeProfessional {
		writeError(w, http.StatusForbidden, "Apenas profissionais podem cadastrar pacientes")
		return
	}
	if prof.ProfessionalType == nil || *prof.ProfessionalType == "" {
		writeError(w, http.StatusBadRequest, "Tipo de profissional não definido no perfil")
		return
	}
	var in patientInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	p, err := in.toPatient()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.CreatedBy = userID
	if err := repo.CreatePatientWithCreator(r.Context(), h.DB, p, *prof.ProfessionalType); err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	h.log().Info("[patients] created", zap.String("patient_id", p.ID.String()), zap.String("created_by", userID.String()))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"patient": h.viewPatient(*p)})
}

// loadPatientForMember busca a paciente (404) e exige que o usuário esteja na equipe (403).
func (h *Handler) loadPatientForMember(w http.ResponseWriter, r *http.Request) (*repo.Patient, uuid.UUID, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	patientID, ok := pathUUID(w, r, "id", "ID do paciente inválido")
	if !ok {
		return nil, uuid.Nil, false
	}
	p, err := repo.PatientByID(r.Context(), h.DB, patientID)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgPatientMissing)
		return nil, uuid.Nil, false
	}
	if err != nil {
		h.internalError(w, r, "patients", err)
		return nil, uuid.Nil, false
	}
	if !h.requireMember(w, r, patientID, userID) {
		return nil, uuid.Nil, false
	}
	return p, userID, true
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, _, ok := h.loadPatientForMember(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": h.viewPatient(*p)})
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	current, _, ok := h.loadPatientForMember(w, r)
	if !ok {
		return
	}
	var in patientInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	p, err := in.toPatient()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = current.ID
	p.CreatedBy = current.CreatedBy
	p.CreatedAt = current.CreatedAt
	if err := repo.UpdatePatient(r.Context(), h.DB, p); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, msgPatientMissing)
			return
		}
		h.internalError(w, r, "patients", err)
		return
	}
	updated, err := repo.PatientByID(r.Context(), h.DB, p.ID)
	if err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"patient": h.viewPatient(*updated)})
}

// DeletePatient: só quem cadastrou exclui. Os arquivos dos documentos são removidos do storage depois.
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathUUID(w, r, "id", "ID do paciente inválido")
	if !ok {
		return
	}
	p, err := repo.PatientByID(r.Context(), h.DB, patientID)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgPatientMissing)
		return
	}
	if err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	if p.CreatedBy != userID {
		writeError(w, http.StatusForbidden, "Apenas o criador pode excluir o paciente")
		return
	}
	docs, err := repo.DocumentsForPatient(r.Context(), h.DB, patientID)
	if err != nil {
		h.internalError(w, r, "patients", err)
		return
	}
	if err := repo.DeletePatient(r.Context(), h.DB, patientID, userID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, msgPatientMissing)
			return
		}
		h.internalError(w, r, "patients", err)
		return
	}
	h.removeObjects(r.Context(), docs)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// removeObjects apaga os arquivos; falha só gera log (a linha no banco já foi removida).
func (h *Handler) removeObjects(ctx context.Context, docs []repo.Document) {
	if h.Storage == nil {
		return
	}
	for _, d := range docs {
		if err := h.Storage.Delete(ctx, d.StoragePath); err != nil {
			h.log().Warn("[storage] delete object failed", zap.String("key", d.StoragePath), zap.Error(err))
		}
	}
}
