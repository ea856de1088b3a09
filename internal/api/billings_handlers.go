package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/billing"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/pdf"
	"github.com/otaviolbarbosa/nascere/internal/report"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"github.com/otaviolbarbosa/nascere/internal/storage"
	"go.uber.org/zap"
)

const (
	msgBillingMissing     = "Cobrança não encontrada"
	msgInstallmentMissing = "Parcela não encontrada"
	msgBillingOwnerOnly   = "Apenas o profissional responsável pode alterar a cobrança"

	// maxReceiptSize limita o upload de comprovantes.
	maxReceiptSize = 10 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func metricsPrefix(userID uuid.UUID) string { return "metrics:" + userID.String() + ":" }

func (h *Handler) invalidateMetrics(ctx context.Context, userID uuid.UUID) {
	if h.Cache != nil {
		h.Cache.DeletePrefix(ctx, metricsPrefix(userID))
	}
}

// periodFilter lê ?period= (last_week, next_month, ...) ou ?start_date=&end_date=.
// O recorte é aplicado sobre a data de criação da cobrança.
func (h *Handler) periodFilter(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if p := q.Get("period"); p != "" {
		start, end, err := billing.PeriodRange(billing.Period(p), h.today())
		if err != nil {
			return nil, nil, errors.New("Período inválido")
		}
		return &start, &end, nil
	}
	if from, err = parseOptionalDay(q.Get("start_date")); err != nil {
		return nil, nil, errors.New("Data inicial inválida")
	}
	if to, err = parseOptionalDay(q.Get("end_date")); err != nil {
		return nil, nil, errors.New("Data final inválida")
	}
	return from, to, nil
}

func dayKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func (h *Handler) ListBillings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	from, to, err := h.periodFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := repo.BillingsForProfessional(r.Context(), h.DB, userID, from, to)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	if list == nil {
		list = []billing.Billing{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"billings": list})
}

// BillingMetrics: totais do dashboard. Cacheado por usuário e período; invalidado a cada escrita.
func (h *Handler) BillingMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	from, to, err := h.periodFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	today := h.today()
	key := metricsPrefix(userID) + dayKey(from) + ":" + dayKey(to) + ":" + today.Format("2006-01-02")
	if h.Cache != nil {
		if b := h.Cache.Get(r.Context(), key); b != nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
			return
		}
	}
	list, err := repo.BillingsForProfessional(r.Context(), h.DB, userID, from, to)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	body, err := json.Marshal(map[string]interface{}{"metrics": billing.Aggregate(list, today)})
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(r.Context(), key, body)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// ExportBillings gera a planilha das cobranças do período (uma linha por parcela).
func (h *Handler) ExportBillings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	from, to, err := h.periodFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := repo.BillingsForProfessional(r.Context(), h.DB, userID, from, to)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	out, err := report.BillingsXLSX(list)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="cobrancas-%s.xlsx"`, h.today().Format("2006-01-02")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) ListPatientBillings(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	list, err := repo.BillingsForPatient(r.Context(), h.DB, patientID)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	if list == nil {
		list = []billing.Billing{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"billings": list})
}

// CreateBilling grava a cobrança com as parcelas calculadas (resto dos centavos na última).
func (h *Handler) CreateBilling(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in billingInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	patientID, err := uuid.Parse(in.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID do paciente inválido")
		return
	}
	b, err := in.toBilling()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, inst := range b.Installments {
		if inst.PaymentLink != nil && !validLink(*inst.PaymentLink) {
			writeError(w, http.StatusBadRequest, "Link de pagamento inválido")
			return
		}
	}
	if !h.requireMember(w, r, patientID, userID) {
		return
	}
	b.PatientID = patientID
	b.ProfessionalID = userID
	if err := repo.CreateBilling(r.Context(), h.DB, b); err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	h.invalidateMetrics(r.Context(), userID)
	h.log().Info("[billings] created",
		zap.String("billing_id", b.ID.String()),
		zap.Int64("total_amount", b.TotalAmount),
		zap.Int("installments", len(b.Installments)),
	)
	h.notifyTeam(patientID, userID, notify.BillingCreated(b.Description, b.TotalAmount,
		"/patients/"+patientID.String()+"/billing"))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"billing": b})
}

// loadBilling busca a cobrança completa (404) visível a quem está na equipe da paciente.
func (h *Handler) loadBilling(w http.ResponseWriter, r *http.Request) (*billing.Billing, uuid.UUID, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	id, ok := pathUUID(w, r, "id", "ID da cobrança inválido")
	if !ok {
		return nil, uuid.Nil, false
	}
	b, err := repo.BillingByID(r.Context(), h.DB, id)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgBillingMissing)
		return nil, uuid.Nil, false
	}
	if err != nil {
		h.internalError(w, r, "billings", err)
		return nil, uuid.Nil, false
	}
	if b.ProfessionalID != userID && !h.requireMember(w, r, b.PatientID, userID) {
		return nil, uuid.Nil, false
	}
	return b, userID, true
}

// loadOwnBilling é loadBilling restrito ao profissional que criou a cobrança.
func (h *Handler) loadOwnBilling(w http.ResponseWriter, r *http.Request) (*billing.Billing, uuid.UUID, bool) {
	b, userID, ok := h.loadBilling(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	if b.ProfessionalID != userID {
		writeError(w, http.StatusForbidden, msgBillingOwnerOnly)
		return nil, uuid.Nil, false
	}
	return b, userID, true
}

func (h *Handler) GetBilling(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.loadBilling(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"billing": b})
}

// PatchBilling altera status e/ou observações. Cancelar cancela as parcelas em aberto.
func (h *Handler) PatchBilling(w http.ResponseWriter, r *http.Request) {
	b, userID, ok := h.loadOwnBilling(w, r)
	if !ok {
		return
	}
	var req struct {
		Status *string `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	status := b.Status
	if req.Status != nil {
		if !billing.ValidStatus(*req.Status) {
			writeError(w, http.StatusBadRequest, "Status inválido")
			return
		}
		status = *req.Status
	}
	if err := repo.UpdateBillingStatus(r.Context(), h.DB, b.ID, status, req.Notes); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, msgBillingMissing)
			return
		}
		h.internalError(w, r, "billings", err)
		return
	}
	h.invalidateMetrics(r.Context(), userID)
	updated, err := repo.BillingByID(r.Context(), h.DB, b.ID)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"billing": updated})
}

// BillingStatement devolve o extrato em PDF com QR code dos links de pagamento em aberto.
func (h *Handler) BillingStatement(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.loadBilling(w, r)
	if !ok {
		return
	}
	header := pdf.StatementHeader{PatientName: b.PatientName, GeneratedAt: h.now().In(h.location())}
	if prof, err := repo.ProfileByID(r.Context(), h.DB, b.ProfessionalID); err == nil {
		header.ProfessionalName = prof.Name
	}
	out, err := pdf.BuildBillingStatementPDF(*b, header)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="extrato-%s.pdf"`, b.ID.String()[:8]))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) location() *time.Location {
	if h.Cfg == nil {
		return time.UTC
	}
	return h.Cfg.Location()
}

func validLink(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SetInstallmentLink grava ou remove (link vazio) o link de pagamento da parcela.
func (h *Handler) SetInstallmentLink(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.loadOwnBilling(w, r)
	if !ok {
		return
	}
	instID, ok := pathUUID(w, r, "iid", "ID da parcela inválido")
	if !ok {
		return
	}
	var req struct {
		PaymentLink *string `json:"payment_link"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	link := trimOptional(req.PaymentLink)
	if link != nil && !validLink(*link) {
		writeError(w, http.StatusBadRequest, "Link de pagamento inválido")
		return
	}
	if err := repo.SetInstallmentLink(r.Context(), h.DB, b.ID, instID, link); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, msgInstallmentMissing)
			return
		}
		h.internalError(w, r, "billings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "payment_link": link})
}

// InstallmentQRCode devolve o PNG do QR code do link de pagamento da parcela.
func (h *Handler) InstallmentQRCode(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.loadBilling(w, r)
	if !ok {
		return
	}
	instID, ok := pathUUID(w, r, "iid", "ID da parcela inválido")
	if !ok {
		return
	}
	var inst *billing.Installment
	for i := range b.Installments {
		if b.Installments[i].ID == instID {
			inst = &b.Installments[i]
			break
		}
	}
	if inst == nil {
		writeError(w, http.StatusNotFound, msgInstallmentMissing)
		return
	}
	if inst.PaymentLink == nil || *inst.PaymentLink == "" {
		writeError(w, http.StatusNotFound, "Parcela sem link de pagamento")
		return
	}
	size := 256
	if s := r.URL.Query().Get("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 64 && n <= 1024 {
			size = n
		}
	}
	png, err := pdf.QRCodePNG(*inst.PaymentLink, size)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type paymentRequest struct {
	Amount        int64   `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	PaidAt        string  `json:"paid_at"`
	Notes         *string `json:"notes"`
}

// readPaymentRequest aceita JSON ou multipart (campos + arquivo "receipt").
func readPaymentRequest(w http.ResponseWriter, r *http.Request) (paymentRequest, multipart.File, *multipart.FileHeader, error) {
	var req paymentRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return req, nil, nil, decodeJSON(r, &req)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptSize+(1<<20))
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		return req, nil, nil, err
	}
	amount, err := strconv.ParseInt(r.FormValue("amount"), 10, 64)
	if err != nil {
		return req, nil, nil, err
	}
	req.Amount = amount
	req.PaymentMethod = r.FormValue("payment_method")
	req.PaidAt = r.FormValue("paid_at")
	if n := r.FormValue("notes"); n != "" {
		req.Notes = &n
	}
	file, fh, err := r.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil, nil
	}
	return req, file, fh, err
}

// RecordPayment registra um pagamento (parcial ou total) numa parcela, com comprovante opcional.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	b, userID, ok := h.loadOwnBilling(w, r)
	if !ok {
		return
	}
	instID, ok := pathUUID(w, r, "iid", "ID da parcela inválido")
	if !ok {
		return
	}
	req, file, fh, err := readPaymentRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if file != nil {
		defer file.Close()
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "O valor do pagamento deve ser maior que zero")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = b.PaymentMethod
	}
	if !billing.ValidPaymentMethod(req.PaymentMethod) {
		writeError(w, http.StatusBadRequest, "Forma de pagamento inválida")
		return
	}
	p := &billing.Payment{
		InstallmentID: instID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         trimOptional(req.Notes),
		RegisteredBy:  userID,
	}
	if req.PaidAt != "" {
		d, err := parseDay(req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Data de pagamento inválida")
			return
		}
		p.PaidAt = d
	} else {
		p.PaidAt = h.now()
	}

	var receiptKey string
	if file != nil {
		if h.Storage == nil {
			writeError(w, http.StatusServiceUnavailable, msgNoStorage)
			return
		}
		receiptKey = storage.ReceiptKey(b.ID, fh.Filename)
		if err := h.Storage.Put(r.Context(), receiptKey, io.LimitReader(file, maxReceiptSize), fh.Size,
			fh.Header.Get("Content-Type")); err != nil {
			h.internalError(w, r, "billings", err)
			return
		}
		p.ReceiptPath = &receiptKey
	}

	err = repo.RecordPayment(r.Context(), h.DB, b.ID, p)
	if err != nil && receiptKey != "" {
		if derr := h.Storage.Delete(r.Context(), receiptKey); derr != nil {
			h.log().Warn("[storage] delete orphan receipt failed", zap.String("key", receiptKey), zap.Error(derr))
		}
	}
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, msgInstallmentMissing)
		return
	case errors.Is(err, repo.ErrOverpayment):
		writeError(w, http.StatusConflict, "Valor maior que o saldo da parcela")
		return
	case errors.Is(err, repo.ErrInstallmentClosed):
		writeError(w, http.StatusConflict, "Parcela já quitada ou cancelada")
		return
	case err != nil:
		h.internalError(w, r, "billings", err)
		return
	}
	h.invalidateMetrics(r.Context(), userID)
	updated, err := repo.BillingByID(r.Context(), h.DB, b.ID)
	if err != nil {
		h.internalError(w, r, "billings", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"payment": p, "billing": updated})
}

// ReceiptURL gera a URL temporária do comprovante de um pagamento.
func (h *Handler) ReceiptURL(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.loadBilling(w, r)
	if !ok {
		return
	}
	payID, ok := pathUUID(w, r, "pid", "ID do pagamento inválido")
	if !ok {
		return
	}
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, msgNoStorage)
		return
	}
	for _, inst := range b.Installments {
		for _, p := range inst.Payments {
			if p.ID != payID {
				continue
			}
			if p.ReceiptPath == nil {
				writeError(w, http.StatusNotFound, "Pagamento sem comprovante")
				return
			}
			u, err := h.Storage.PresignGet(r.Context(), *p.ReceiptPath, "", storage.DownloadTTL)
			if err != nil {
				h.internalError(w, r, "billings", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"url": u, "expires_in": int(storage.DownloadTTL.Seconds())})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Pagamento não encontrado")
}
