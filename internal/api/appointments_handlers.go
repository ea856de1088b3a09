package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/repo"
)

const (
	msgAppointmentMissing = "Agendamento não encontrado"
	defaultDuration       = 60
)

type appointmentRequest struct {
	PatientID string  `json:"patient_id"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Duration  *int    `json:"duration"`
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Location  *string `json:"location"`
	Notes     *string `json:"notes"`
}

// apply valida e aplica os campos informados sobre a.
func (req appointmentRequest) apply(a *repo.Appointment) string {
	if req.Date != "" {
		d, err := parseDay(req.Date)
		if err != nil {
			return "Data inválida"
		}
		a.Date = d
	}
	if req.Time != "" {
		if !validHHMM(req.Time) {
			return "Horário inválido"
		}
		a.Time = req.Time
	}
	if req.Duration != nil {
		if *req.Duration <= 0 || *req.Duration > 24*60 {
			return "Duração inválida"
		}
		a.Duration = *req.Duration
	}
	if req.Type != "" {
		if !repo.ValidAppointmentType(req.Type) {
			return "Tipo de agendamento inválido"
		}
		a.Type = req.Type
	}
	if req.Status != "" {
		if !repo.ValidAppointmentStatus(req.Status) {
			return "Status inválido"
		}
		a.Status = req.Status
	}
	if req.Location != nil {
		a.Location = trimOptional(req.Location)
	}
	if req.Notes != nil {
		a.Notes = trimOptional(req.Notes)
	}
	return ""
}

// ListAppointments: agenda do profissional, opcionalmente entre from e to (YYYY-MM-DD).
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	from, err := parseOptionalDay(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Data inicial inválida")
		return
	}
	to, err := parseOptionalDay(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Data final inválida")
		return
	}
	list, err := repo.AppointmentsForProfessional(r.Context(), h.DB, userID, from, to)
	if err != nil {
		h.internalError(w, r, "appointments", err)
		return
	}
	if list == nil {
		list = []repo.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointments": list})
}

func (h *Handler) ListPatientAppointments(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	list, err := repo.AppointmentsForPatient(r.Context(), h.DB, patientID)
	if err != nil {
		h.internalError(w, r, "appointments", err)
		return
	}
	if list == nil {
		list = []repo.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointments": list})
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID do paciente inválido")
		return
	}
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		writeError(w, http.StatusBadRequest, "Data e horário são obrigatórios")
		return
	}
	a := &repo.Appointment{
		PatientID:      patientID,
		ProfessionalID: userID,
		Duration:       defaultDuration,
		Type:           repo.AppointmentConsulta,
		Status:         repo.AppointmentAgendada,
	}
	if msg := req.apply(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !h.requireMember(w, r, patientID, userID) {
		return
	}
	if err := repo.CreateAppointment(r.Context(), h.DB, a); err != nil {
		h.internalError(w, r, "appointments", err)
		return
	}
	created, err := repo.AppointmentByID(r.Context(), h.DB, a.ID)
	if err != nil {
		h.internalError(w, r, "appointments", err)
		return
	}
	h.notifyTeam(patientID, userID, notify.AppointmentCreated(created.PatientName, created.Date, created.Time, "/appointments"))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"appointment": created})
}

// loadAppointment busca o agendamento (404) e exige que o usuário esteja na equipe da paciente.
func (h *Handler) loadAppointment(w http.ResponseWriter, r *http.Request) (*repo.Appointment, uuid.UUID, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, ok := pathUUID(w, r, "id", "ID do agendamento inválido")
	if !ok {
		return nil, uuid.Nil, false
	}
	a, err := repo.AppointmentByID(r.Context(), h.DB, id)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgAppointmentMissing)
		return nil, uuid.Nil, false
	}
	if err != nil {
		h.internalError(w, r, "appointments", err)
		return nil, uuid.Nil, false
	}
	if !h.requireMember(w, r, a.PatientID, userID) {
		return nil, uuid.Nil, false
	}
	return a, userID, true
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	a, _, ok := h.loadAppointment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointment": a})
}

// UpdateAppointment altera os campos informados. Mudança para cancelada gera a notificação de cancelamento.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	a, userID, ok := h.loadAppointment(w, r)
	if !ok {
		return
	}
	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	wasCancelled := a.Status == repo.AppointmentCancelada
	if msg := req.apply(a); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := repo.UpdateAppointment(r.Context(), h.DB, a); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, msgAppointmentMissing)
			return
		}
		h.internalError(w, r, "appointments", err)
		return
	}
	msg := notify.AppointmentUpdated(a.PatientName, a.Date, a.Time, "/appointments")
	if a.Status == repo.AppointmentCancelada && !wasCancelled {
		msg = notify.AppointmentCancelled(a.PatientName, a.Date, a.Time, "/appointments")
	}
	h.notifyTeam(a.PatientID, userID, msg)
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointment": a})
}

// DeleteAppointment: só o profissional responsável remove.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	a, userID, ok := h.loadAppointment(w, r)
	if !ok {
		return
	}
	if a.ProfessionalID != userID {
		writeError(w, http.StatusForbidden, "Apenas o profissional responsável pode excluir o agendamento")
		return
	}
	if err := repo.DeleteAppointment(r.Context(), h.DB, a.ID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, msgAppointmentMissing)
			return
		}
		h.internalError(w, r, "appointments", err)
		return
	}
	if a.Status == repo.AppointmentAgendada {
		h.notifyTeam(a.PatientID, userID, notify.AppointmentCancelled(a.PatientName, a.Date, a.Time, "/appointments"))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
