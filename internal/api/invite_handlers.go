package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/auth"
	"github.com/otaviolbarbosa/nascere/internal/invite"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
)

const (
	msgInviteMissing = "Convite não encontrado"
	msgAlreadyMember = "Você já faz parte da equipe desta paciente"
)

func (h *Handler) inviteURL(id uuid.UUID) string {
	base := ""
	if h.Cfg != nil {
		base = strings.TrimRight(h.Cfg.AppPublicURL, "/")
	}
	return base + "/invites/" + id.String()
}

// inviteExpiry é a validade de um convite criado agora.
func (h *Handler) inviteExpiry() time.Time {
	ttl := invite.DefaultTTL
	if h.Cfg != nil && h.Cfg.InviteTTL > 0 {
		ttl = h.Cfg.InviteTTL
	}
	return invite.ExpiresAt(h.now(), ttl)
}

// CreateLinkInvite gera (ou reaproveita) o link de convite da paciente.
func (h *Handler) CreateLinkInvite(w http.ResponseWriter, r *http.Request) {
	userID, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	inv, reused, err := repo.CreateLinkInvite(r.Context(), h.DB, patientID, userID, h.inviteExpiry())
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	code := http.StatusCreated
	if reused {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]interface{}{"invite": inv, "url": h.inviteURL(inv.ID), "reused": reused})
}

// CreateDirectInvite convida um profissional específico e o notifica.
func (h *Handler) CreateDirectInvite(w http.ResponseWriter, r *http.Request) {
	userID, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	var req struct {
		ProfessionalID string `json:"professional_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	target, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID do profissional inválido")
		return
	}
	if target == userID {
		writeError(w, http.StatusBadRequest, "Não é possível convidar a si mesmo")
		return
	}
	prof, err := repo.ProfileByID(r.Context(), h.DB, target)
	if isNotFound(err) || (err == nil && prof.UserType != auth.UserTypeProfessional) {
		writeError(w, http.StatusNotFound, "Profissional não encontrado")
		return
	}
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	member, err := repo.IsTeamMember(r.Context(), h.DB, patientID, target)
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	if member {
		writeError(w, http.StatusConflict, "Profissional já faz parte da equipe")
		return
	}
	if prof.ProfessionalType != nil {
		taken, err := repo.TakenProfessionalTypes(r.Context(), h.DB, patientID)
		if err != nil {
			h.internalError(w, r, "invites", err)
			return
		}
		for _, t := range taken {
			if t == *prof.ProfessionalType {
				writeError(w, http.StatusConflict, fmt.Sprintf("Já existe um %s na equipe desta paciente", t))
				return
			}
		}
	}
	inv, reused, err := repo.CreateDirectInvite(r.Context(), h.DB, patientID, userID, target, h.inviteExpiry())
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	if !reused {
		h.notifyUsers([]uuid.UUID{target}, notify.TeamInviteReceived(inv.InviterName, inv.PatientName, "/invites"))
	}
	code := http.StatusCreated
	if reused {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]interface{}{"invite": inv, "reused": reused})
}

// ListMyInvites: convites diretos pendentes para o usuário.
func (h *Handler) ListMyInvites(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := repo.PendingInvitesFor(r.Context(), h.DB, userID)
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	if list == nil {
		list = []repo.TeamInvite{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invites": list})
}

// loadInvite busca o convite visível ao usuário: link aberto, ou direto para ele, ou criado por ele.
func (h *Handler) loadInvite(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*repo.TeamInvite, bool) {
	id, ok := pathUUID(w, r, "id", "ID do convite inválido")
	if !ok {
		return nil, false
	}
	inv, err := repo.InviteByID(r.Context(), h.DB, id)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgInviteMissing)
		return nil, false
	}
	if err != nil {
		h.internalError(w, r, "invites", err)
		return nil, false
	}
	if inv.InvitedBy != userID && inv.InvitedProfessionalID != nil && *inv.InvitedProfessionalID != userID {
		writeError(w, http.StatusNotFound, msgInviteMissing)
		return nil, false
	}
	return inv, true
}

func (h *Handler) GetInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	inv, ok := h.loadInvite(w, r, userID)
	if !ok {
		return
	}
	if err := repo.ExpireIfStale(r.Context(), h.DB, inv, h.now()); err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"invite": inv})
}

// RespondInvite aceita ou recusa ({"action":"accept"|"reject"}).
// O aceite depende da constraint única (paciente, tipo): em corrida, só um profissional entra.
func (h *Handler) RespondInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil || !invite.ValidAction(req.Action) {
		writeError(w, http.StatusBadRequest, "Ação inválida")
		return
	}
	inv, ok := h.loadInvite(w, r, userID)
	if !ok {
		return
	}
	// Quem convidou só acompanha; responder cabe ao alvo do convite direto ou a quem abriu o link.
	if inv.InvitedBy == userID || (inv.InvitedProfessionalID != nil && *inv.InvitedProfessionalID != userID) {
		writeError(w, http.StatusForbidden, "Você não pode responder a este convite")
		return
	}
	if invite.Terminal(inv.Status) {
		writeError(w, http.StatusNotFound, msgInviteMissing)
		return
	}
	if !invite.Actionable(inv.Status, inv.ExpiresAt, h.now()) {
		if err := repo.ExpireIfStale(r.Context(), h.DB, inv, h.now()); err != nil {
			h.internalError(w, r, "invites", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Convite expirado")
		return
	}
	prof, err := h.profile(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}

	if req.Action == invite.ActionReject {
		err := repo.RejectInvite(r.Context(), h.DB, inv.ID, userID, prof.ProfessionalType)
		if errors.Is(err, repo.ErrInviteNotPending) {
			h.inviteNoLongerPending(w, r, inv.ID)
			return
		}
		if err != nil {
			h.internalError(w, r, "invites", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Convite rejeitado"})
		return
	}

	profType := ""
	if inv.ProfessionalType != nil {
		profType = *inv.ProfessionalType
	}
	if profType == "" && prof.ProfessionalType != nil {
		profType = *prof.ProfessionalType
	}
	if !repo.ValidProfessionalType(profType) {
		writeError(w, http.StatusBadRequest, "Tipo de profissional não definido no perfil")
		return
	}
	member, err := repo.IsTeamMember(r.Context(), h.DB, inv.PatientID, userID)
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	if member {
		writeError(w, http.StatusConflict, msgAlreadyMember)
		return
	}
	err = repo.AcceptInvite(r.Context(), h.DB, inv.ID, userID, profType)
	switch {
	case errors.Is(err, repo.ErrTeamRoleTaken):
		writeError(w, http.StatusConflict, fmt.Sprintf("Já existe um %s na equipe desta paciente", profType))
		return
	case errors.Is(err, repo.ErrAlreadyMember):
		writeError(w, http.StatusConflict, msgAlreadyMember)
		return
	case errors.Is(err, repo.ErrInviteNotPending):
		h.inviteNoLongerPending(w, r, inv.ID)
		return
	case err != nil:
		h.internalError(w, r, "invites", err)
		return
	}
	h.log().Info("[invites] accepted",
		zap.String("invite_id", inv.ID.String()),
		zap.String("patient_id", inv.PatientID.String()),
		zap.String("professional_type", profType),
	)
	h.notifyTeam(inv.PatientID, userID, notify.TeamInviteAccepted(prof.Name, inv.PatientName,
		"/patients/"+inv.PatientID.String()+"/team"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Convite aceito com sucesso",
		"patient_id": inv.PatientID,
	})
}

// inviteNoLongerPending responde quando o UPDATE condicional não achou o convite pendente:
// ou outra resposta chegou antes, ou ele venceu entre a leitura e a gravação.
func (h *Handler) inviteNoLongerPending(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	cur, err := repo.InviteByID(r.Context(), h.DB, id)
	if err == nil {
		err = repo.ExpireIfStale(r.Context(), h.DB, cur, h.now())
	}
	if err != nil {
		h.internalError(w, r, "invites", err)
		return
	}
	if cur.Status == invite.StatusExpirado {
		writeError(w, http.StatusBadRequest, "Convite expirado")
		return
	}
	writeError(w, http.StatusConflict, "Convite já respondido")
}
