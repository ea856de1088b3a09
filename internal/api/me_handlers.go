package api

import (
	"net/http"
	"strings"

	"github.com/otaviolbarbosa/nascere/internal/repo"
)

// Me devolve o perfil do usuário autenticado (criado no primeiro acesso).
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.profile(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": u})
}

type patchMeRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

func (h *Handler) PatchMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req patchMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		if len(n) < 2 {
			writeError(w, http.StatusBadRequest, ErrInvalidName.Error())
			return
		}
		req.Name = &n
	}
	if req.Phone != nil && *req.Phone != "" {
		if err := ValidatePhone(*req.Phone); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if _, err := h.profile(r.Context(), userID); err != nil {
		h.internalError(w, r, "me", err)
		return
	}
	if err := repo.UpdateProfile(r.Context(), h.DB, userID, req.Name, req.Phone, req.AvatarURL); err != nil {
		h.internalError(w, r, "me", err)
		return
	}
	u, err := repo.ProfileByID(r.Context(), h.DB, userID)
	if err != nil {
		h.internalError(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": u})
}

// SetProfessionalType define obstetra/enfermeiro/doula; necessário para aceitar convites.
func (h *Handler) SetProfessionalType(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		ProfessionalType string `json:"professional_type"`
	}
	if err := decodeJSON(r, &req); err != nil || !repo.ValidProfessionalType(req.ProfessionalType) {
		writeError(w, http.StatusBadRequest, "Tipo de profissional inválido")
		return
	}
	if _, err := h.profile(r.Context(), userID); err != nil {
		h.internalError(w, r, "me", err)
		return
	}
	err := repo.SetProfessionalType(r.Context(), h.DB, userID, req.ProfessionalType)
	if isNotFound(err) {
		writeError(w, http.StatusForbidden, "Apenas profissionais podem definir o tipo")
		return
	}
	if err != nil {
		h.internalError(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "professional_type": req.ProfessionalType})
}

// SearchUsers busca profissionais para convite direto. q com menos de 2 caracteres não busca.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < 2 {
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": []repo.User{}})
		return
	}
	var types []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); repo.ValidProfessionalType(t) {
			types = append(types, t)
		}
	}
	list, err := repo.SearchProfessionals(r.Context(), h.DB, q, types, userID, 8)
	if err != nil {
		h.internalError(w, r, "users", err)
		return
	}
	if list == nil {
		list = []repo.User{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": list})
}
