package reminder

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewHandler expõe o job para um agendador externo: GET /health e POST /trigger.
// Com apiKey vazio o trigger fica aberto (uso local).
func NewHandler(r *Runner, apiKey string, now func() time.Time) http.Handler {
	if now == nil {
		now = time.Now
	}
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/trigger", func(w http.ResponseWriter, req *http.Request) {
		if apiKey != "" {
			key := req.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Não autorizado"})
				return
			}
		}
		res, err := r.Run(req.Context(), now())
		if err != nil {
			r.logger.Error("[reminder] trigger failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Erro interno do servidor"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}).Methods(http.MethodPost)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
