package api

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/crypto"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
)

var errNoSealer = errors.New("evolution sealer not configured")

type evolutionView struct {
	ID               uuid.UUID `json:"id"`
	PatientID        uuid.UUID `json:"patient_id"`
	ProfessionalID   uuid.UUID `json:"professional_id"`
	ProfessionalName string    `json:"professional_name"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
}

func viewEvolution(e repo.Evolution, content string) evolutionView {
	return evolutionView{
		ID:               e.ID,
		PatientID:        e.PatientID,
		ProfessionalID:   e.ProfessionalID,
		ProfessionalName: e.ProfessionalName,
		Content:          content,
		CreatedAt:        e.CreatedAt,
	}
}

// ListEvolutions decifra as evoluções da paciente. Linha que não abre (chave ausente) é pulada com log.
func (h *Handler) ListEvolutions(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	if h.Sealer == nil {
		h.internalError(w, r, "evolutions", errNoSealer)
		return
	}
	list, err := repo.EvolutionsForPatient(r.Context(), h.DB, patientID)
	if err != nil {
		h.internalError(w, r, "evolutions", err)
		return
	}
	out := make([]evolutionView, 0, len(list))
	for _, e := range list {
		plain, err := h.Sealer.Open(crypto.Sealed{
			Ciphertext: e.ContentEncrypted,
			Nonce:      e.ContentNonce,
			KeyVersion: e.ContentKeyVersion,
		})
		if err != nil {
			h.log().Error("[evolutions] decrypt failed",
				zap.String("evolution_id", e.ID.String()),
				zap.String("key_version", e.ContentKeyVersion),
				zap.Error(err),
			)
			continue
		}
		out = append(out, viewEvolution(e, string(plain)))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"evolutions": out})
}

func (h *Handler) CreateEvolution(w http.ResponseWriter, r *http.Request) {
	userID, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "O conteúdo da evolução é obrigatório")
		return
	}
	if utf8.RuneCountInString(content) > MaxEvolutionLength {
		writeError(w, http.StatusBadRequest, "A evolução deve ter no máximo 5000 caracteres")
		return
	}
	if h.Sealer == nil {
		h.internalError(w, r, "evolutions", errNoSealer)
		return
	}
	sealed, err := h.Sealer.Seal([]byte(content))
	if err != nil {
		h.internalError(w, r, "evolutions", err)
		return
	}
	e := &repo.Evolution{
		PatientID:         patientID,
		ProfessionalID:    userID,
		ContentEncrypted:  sealed.Ciphertext,
		ContentNonce:      sealed.Nonce,
		ContentKeyVersion: sealed.KeyVersion,
	}
	if err := repo.CreateEvolution(r.Context(), h.DB, e); err != nil {
		h.internalError(w, r, "evolutions", err)
		return
	}
	prof, err := h.profile(r.Context(), userID)
	if err == nil {
		e.ProfessionalName = prof.Name
		if patient, perr := repo.PatientByID(r.Context(), h.DB, patientID); perr == nil {
			h.notifyTeam(patientID, userID, notify.EvolutionAdded(prof.Name, patient.Name,
				"/patients/"+patientID.String()+"/evolutions"))
		}
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"evolution": viewEvolution(*e, content)})
}
