package api

import (
	"errors"
	"net/http"

	"github.com/otaviolbarbosa/nascere/internal/repo"
)

func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	members, err := repo.TeamMembers(r.Context(), h.DB, patientID)
	if err != nil {
		h.internalError(w, r, "team", err)
		return
	}
	if members == nil {
		members = []repo.TeamMember{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"team_members": members})
}

// LeaveTeam remove o próprio usuário da equipe.
func (h *Handler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	userID, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	err := repo.LeaveTeam(r.Context(), h.DB, patientID, userID)
	switch {
	case errors.Is(err, repo.ErrCreatorCannotLeave):
		writeError(w, http.StatusForbidden, "Quem cadastrou a paciente não pode sair da equipe")
	case isNotFound(err):
		writeError(w, http.StatusNotFound, msgPatientMissing)
	case err != nil:
		h.internalError(w, r, "team", err)
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
