// Package push delivers Web Push notifications to browser subscriptions.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

const (
	defaultIcon  = "/icons/icon-192x192.png"
	defaultBadge = "/icons/icon-96x96.png"
	defaultURL   = "/"
)

// ErrSubscriptionGone reports that the push service no longer knows the
// endpoint. The subscription should be deleted.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Subscription is the delivery address of one browser.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Payload is the notification shown by the service worker.
type Payload struct {
	Title string
	Body  string
	Icon  string
	Badge string
	Image string
	URL   string
	Data  map[string]any
}

type wirePayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon"`
	Badge string         `json:"badge"`
	Image string         `json:"image,omitempty"`
	Data  map[string]any `json:"data"`
}

// MarshalJSON applies the default icon, badge and click URL. The URL travels
// in data.url next to the caller's data.
func (p Payload) MarshalJSON() ([]byte, error) {
	wire := wirePayload{
		Title: p.Title,
		Body:  p.Body,
		Icon:  p.Icon,
		Badge: p.Badge,
		Image: p.Image,
		Data:  make(map[string]any, len(p.Data)+1),
	}
	if wire.Icon == "" {
		wire.Icon = defaultIcon
	}
	if wire.Badge == "" {
		wire.Badge = defaultBadge
	}
	wire.Data["url"] = defaultURL
	if p.URL != "" {
		wire.Data["url"] = p.URL
	}
	for k, v := range p.Data {
		wire.Data[k] = v
	}
	return json.Marshal(wire)
}

// Sender delivers one payload to one subscription.
type Sender interface {
	Name() string
	Send(ctx context.Context, sub Subscription, payload Payload) error
}

// NewSender returns a VAPID sender when keys are configured, and a logging
// sender otherwise. client may be nil.
func NewSender(cfg config.VAPIDConfig, client webpush.HTTPClient, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return &LogSender{logg: logg}
	}
	return &WebPushSender{cfg: cfg, client: client}
}

// WebPushSender signs requests with the configured VAPID key pair.
type WebPushSender struct {
	cfg    config.VAPIDConfig
	client webpush.HTTPClient
}

func (s *WebPushSender) Name() string { return "webpush" }

func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      strings.TrimPrefix(s.cfg.Subject, "mailto:"),
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTLSeconds,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// LogSender records notifications instead of sending them.
type LogSender struct {
	logg *logger.Logger
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, sub Subscription, payload Payload) error {
	if s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"endpoint": sub.Endpoint, "title": payload.Title})
	s.logg.Info(ctx, "push.skipped_vapid_unconfigured")
	return nil
}
