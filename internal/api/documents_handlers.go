package api

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"github.com/otaviolbarbosa/nascere/internal/storage"
	"go.uber.org/zap"
)

const (
	msgDocumentMissing = "Documento não encontrado"
	maxDocumentSize    = 20 << 20
)

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	list, err := repo.DocumentsForPatient(r.Context(), h.DB, patientID)
	if err != nil {
		h.internalError(w, r, "documents", err)
		return
	}
	if list == nil {
		list = []repo.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": list})
}

// UploadDocument recebe multipart ("file" + "description" opcional), grava no bucket e registra.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, msgNoStorage)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize+(1<<20))
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeError(w, http.StatusBadRequest, "Arquivo inválido ou maior que 20MB")
		return
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Arquivo é obrigatório")
		return
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); t != "" {
			contentType = t
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.DocumentKey(patientID, fh.Filename)
	if err := h.Storage.Put(r.Context(), key, io.LimitReader(file, maxDocumentSize), fh.Size, contentType); err != nil {
		h.internalError(w, r, "documents", err)
		return
	}
	desc := r.FormValue("description")
	d := &repo.Document{
		PatientID:   patientID,
		UploadedBy:  userID,
		FileName:    fh.Filename,
		FileType:    contentType,
		FileSize:    fh.Size,
		StoragePath: key,
		Description: trimOptional(&desc),
	}
	if err := repo.CreateDocument(r.Context(), h.DB, d); err != nil {
		if derr := h.Storage.Delete(r.Context(), key); derr != nil {
			h.log().Warn("[storage] delete orphan object failed", zap.String("key", key), zap.Error(derr))
		}
		h.internalError(w, r, "documents", err)
		return
	}
	h.log().Info("[documents] uploaded",
		zap.String("patient_id", patientID.String()),
		zap.String("document_id", d.ID.String()),
		zap.Int64("size", d.FileSize),
	)
	if h.Notify != nil {
		prof, perr := h.profile(r.Context(), userID)
		patient, pterr := repo.PatientByID(r.Context(), h.DB, patientID)
		if perr == nil && pterr == nil {
			h.notifyTeam(patientID, userID, notify.DocumentUploaded(prof.Name, patient.Name, d.FileName,
				"/patients/"+patientID.String()+"/documents"))
		}
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"document": d})
}

// DocumentURL devolve uma URL assinada (5 min) para download.
func (h *Handler) DocumentURL(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "docId", "ID do documento inválido")
	if !ok {
		return
	}
	if h.Storage == nil {
		writeError(w, http.StatusServiceUnavailable, msgNoStorage)
		return
	}
	d, err := repo.DocumentByID(r.Context(), h.DB, patientID, docID)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgDocumentMissing)
		return
	}
	if err != nil {
		h.internalError(w, r, "documents", err)
		return
	}
	u, err := h.Storage.PresignGet(r.Context(), d.StoragePath, d.FileName, storage.DownloadTTL)
	if err != nil {
		h.log().Error("[documents] presign failed", zap.String("key", d.StoragePath), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Erro ao gerar URL de download")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": u, "fileName": d.FileName})
}

// DeleteDocument remove a linha e depois o objeto; falha no bucket só vira log.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	_, patientID, ok := h.memberOfPatientParam(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "docId", "ID do documento inválido")
	if !ok {
		return
	}
	path, err := repo.DeleteDocument(r.Context(), h.DB, patientID, docID)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, msgDocumentMissing)
		return
	}
	if err != nil {
		h.internalError(w, r, "documents", err)
		return
	}
	h.removeObjects(r.Context(), []repo.Document{{StoragePath: path}})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
