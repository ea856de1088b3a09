package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/otaviolbarbosa/nascere/internal/auth"
	"github.com/otaviolbarbosa/nascere/internal/middleware"
)

// Mount registra as rotas autenticadas em /api.
// Rotas fixas (/patients/home, /billings/metrics...) vêm antes das com {id}: o mux casa na ordem.
func (h *Handler) Mount(r *mux.Router, secret []byte) {
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(secret))

	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/me", h.PatchMe).Methods(http.MethodPatch)
	protected.HandleFunc("/me/professional-type", h.SetProfessionalType).Methods(http.MethodPut)
	protected.HandleFunc("/users/search", h.SearchUsers).Methods(http.MethodGet)

	protected.HandleFunc("/patients", h.ListPatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients", h.CreatePatient).Methods(http.MethodPost)
	protected.HandleFunc("/patients/home", h.HomePatients).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}", h.GetPatient).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}", h.UpdatePatient).Methods(http.MethodPut)
	protected.HandleFunc("/patients/{id}", h.DeletePatient).Methods(http.MethodDelete)

	protected.HandleFunc("/patients/{id}/team", h.ListTeam).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}/team/me", h.LeaveTeam).Methods(http.MethodDelete)
	protected.HandleFunc("/patients/{id}/invites", h.CreateLinkInvite).Methods(http.MethodPost)
	protected.HandleFunc("/patients/{id}/invites/direct", h.CreateDirectInvite).Methods(http.MethodPost)
	protected.HandleFunc("/invites", h.ListMyInvites).Methods(http.MethodGet)
	protected.HandleFunc("/invites/{id}", h.GetInvite).Methods(http.MethodGet)
	protected.HandleFunc("/team/invites/{id}", h.RespondInvite).Methods(http.MethodPut)

	protected.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{id}", h.GetAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.UpdateAppointment).Methods(http.MethodPut)
	protected.HandleFunc("/appointments/{id}", h.DeleteAppointment).Methods(http.MethodDelete)
	protected.HandleFunc("/patients/{id}/appointments", h.ListPatientAppointments).Methods(http.MethodGet)

	protected.HandleFunc("/patients/{id}/documents", h.ListDocuments).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}/documents", h.UploadDocument).Methods(http.MethodPost)
	protected.HandleFunc("/patients/{id}/documents/{docId}", h.DocumentURL).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}/documents/{docId}", h.DeleteDocument).Methods(http.MethodDelete)

	protected.HandleFunc("/patients/{id}/evolutions", h.ListEvolutions).Methods(http.MethodGet)
	protected.HandleFunc("/patients/{id}/evolutions", h.CreateEvolution).Methods(http.MethodPost)

	protected.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/unread-count", h.UnreadCount).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/read", h.MarkRead).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/settings", h.GetNotificationSettings).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/settings", h.UpdateNotificationSettings).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/subscriptions", h.Subscribe).Methods(http.MethodPost)
	protected.HandleFunc("/notifications/subscriptions", h.Unsubscribe).Methods(http.MethodDelete)

	// Financeiro: só profissionais.
	fin := protected.NewRoute().Subrouter()
	fin.Use(middleware.RequireUserType(auth.UserTypeProfessional))
	fin.HandleFunc("/billings", h.ListBillings).Methods(http.MethodGet)
	fin.HandleFunc("/billings", h.CreateBilling).Methods(http.MethodPost)
	fin.HandleFunc("/billings/metrics", h.BillingMetrics).Methods(http.MethodGet)
	fin.HandleFunc("/billings/export", h.ExportBillings).Methods(http.MethodGet)
	fin.HandleFunc("/patients/{id}/billings", h.ListPatientBillings).Methods(http.MethodGet)
	fin.HandleFunc("/billings/{id}", h.GetBilling).Methods(http.MethodGet)
	fin.HandleFunc("/billings/{id}", h.PatchBilling).Methods(http.MethodPatch)
	fin.HandleFunc("/billings/{id}/statement", h.BillingStatement).Methods(http.MethodGet)
	fin.HandleFunc("/billings/{id}/installments/{iid}/link", h.SetInstallmentLink).Methods(http.MethodPut)
	fin.HandleFunc("/billings/{id}/installments/{iid}/qrcode", h.InstallmentQRCode).Methods(http.MethodGet)
	fin.HandleFunc("/billings/{id}/installments/{iid}/payments", h.RecordPayment).Methods(http.MethodPost)
	fin.HandleFunc("/billings/{id}/payments/{pid}/receipt", h.ReceiptURL).Methods(http.MethodGet)
}
