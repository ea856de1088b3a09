package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"gorm.io/datatypes"
)

func unreadKey(userID uuid.UUID) string { return "unread:" + userID.String() }

// InvalidateUnread limpa o contador cacheado; usado também como callback do notify.Service.
func (h *Handler) InvalidateUnread(ctx context.Context, userID uuid.UUID) {
	if h.Cache != nil {
		h.Cache.Delete(ctx, unreadKey(userID))
	}
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, offset := ParseLimitOffset(r)
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))
	list, total, err := repo.NotificationsForUser(r.Context(), h.DB, userID, unreadOnly, limit, offset)
	if err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	if list == nil {
		list = []repo.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"total":         total,
		"page":          pageOf(limit, offset),
		"limit":         limit,
	})
}

// UnreadCount alimenta o badge do sino; cacheado até a próxima entrega ou leitura.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	key := unreadKey(userID)
	if h.Cache != nil {
		if b := h.Cache.Get(r.Context(), key); b != nil {
			if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
				writeJSON(w, http.StatusOK, map[string]interface{}{"count": n})
				return
			}
		}
	}
	n, err := repo.UnreadCount(r.Context(), h.DB, userID)
	if err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(r.Context(), key, []byte(strconv.FormatInt(n, 10)))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": n})
}

// MarkRead marca as notificações informadas; sem ids marca todas.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "ID de notificação inválido")
			return
		}
		ids = append(ids, id)
	}
	n, err := repo.MarkNotificationsRead(r.Context(), h.DB, userID, ids)
	if err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	h.InvalidateUnread(r.Context(), userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "updated": n})
}

// ensureProfile garante a linha em users antes de gravar algo que a referencia.
func (h *Handler) ensureProfile(w http.ResponseWriter, r *http.Request, userID uuid.UUID) bool {
	if _, err := h.profile(r.Context(), userID); err != nil {
		h.internalError(w, r, "notifications", err)
		return false
	}
	return true
}

func (h *Handler) GetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok || !h.ensureProfile(w, r, userID) {
		return
	}
	s, err := repo.GetOrCreateSettings(r.Context(), h.DB, userID)
	if err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": s})
}

// UpdateNotificationSettings aceita um subconjunto das flags ({"billing_created": false, ...}).
func (h *Handler) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var flags map[string]bool
	if err := decodeJSON(r, &flags); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if !h.ensureProfile(w, r, userID) {
		return
	}
	s, err := repo.UpdateNotificationSettings(r.Context(), h.DB, userID, flags)
	if err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": s})
}

type subscriptionRequest struct {
	FCMToken   string          `json:"fcm_token"`
	DeviceInfo json.RawMessage `json:"device_info"`
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	token := strings.TrimSpace(req.FCMToken)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token FCM é obrigatório")
		return
	}
	if !h.ensureProfile(w, r, userID) {
		return
	}
	sub := &repo.PushSubscription{UserID: userID, FCMToken: token, DeviceInfo: datatypes.JSON(req.DeviceInfo)}
	if err := repo.UpsertPushSubscription(r.Context(), h.DB, sub); err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.FCMToken) == "" {
		writeError(w, http.StatusBadRequest, "Token FCM é obrigatório")
		return
	}
	if err := repo.DeactivatePushSubscription(r.Context(), h.DB, userID, strings.TrimSpace(req.FCMToken)); err != nil {
		h.internalError(w, r, "notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
