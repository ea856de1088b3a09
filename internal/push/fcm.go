// Package push envia notificações push pelo FCM (HTTP v1).
package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrUnregistered: o token não é mais válido; a inscrição deve ser desativada.
var ErrUnregistered = errors.New("push: token unregistered")

const DefaultEndpoint = "https://fcm.googleapis.com"

// Config: sem ProjectID ou AccessToken o cliente não envia nada.
type Config struct {
	Endpoint    string
	ProjectID   string
	AccessToken string
}

type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type Client struct {
	cfg    Config
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.AccessToken)
	return &Client{cfg: cfg, http: hc, logger: logger}
}

func (c *Client) Enabled() bool {
	return c.cfg.ProjectID != "" && c.cfg.AccessToken != ""
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Webpush      *fcmWebpush       `json:"webpush,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmWebpush struct {
	FCMOptions struct {
		Link string `json:"link"`
	} `json:"fcm_options"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

type fcmError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func (e fcmError) unregistered() bool {
	if e.Error.Status == "NOT_FOUND" {
		return true
	}
	for _, d := range e.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return true
		}
	}
	return false
}

// Send entrega uma mensagem a um token. Retorna o id da mensagem no FCM.
// Não configurado: no-op, retorna "" e nil.
func (c *Client) Send(ctx context.Context, m Message) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	if strings.TrimSpace(m.Token) == "" {
		return "", errors.New("push: empty token")
	}
	msg := fcmMessage{
		Token:        m.Token,
		Notification: fcmNotification{Title: m.Title, Body: m.Body},
		Data:         m.Data,
	}
	if link := m.Data["url"]; link != "" {
		msg.Webpush = &fcmWebpush{}
		msg.Webpush.FCMOptions.Link = link
	}

	var ok fcmResponse
	var fail fcmError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(fcmRequest{Message: msg}).
		SetResult(&ok).
		SetError(&fail).
		Post(fmt.Sprintf("/v1/projects/%s/messages:send", c.cfg.ProjectID))
	if err != nil {
		c.logger.Error("[push] fcm request failed", zap.Error(err))
		return "", fmt.Errorf("push: %w", err)
	}
	if resp.IsError() {
		if fail.unregistered() {
			return "", ErrUnregistered
		}
		c.logger.Warn("[push] fcm rejected message",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("status", fail.Error.Status),
			zap.String("message", fail.Error.Message),
		)
		return "", fmt.Errorf("push: fcm %d %s", resp.StatusCode(), fail.Error.Status)
	}
	return ok.Name, nil
}
