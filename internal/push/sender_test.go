package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/koumale-backend/pkg/config"
)

func TestPayloadAppliesDefaults(t *testing.T) {
	raw, err := json.Marshal(Payload{Title: "Hi", Body: "there", Data: map[string]any{"type": "x"}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, defaultIcon, decoded["icon"])
	require.Equal(t, defaultBadge, decoded["badge"])
	require.NotContains(t, decoded, "image")
	require.Equal(t, map[string]any{"url": "/", "type": "x"}, decoded["data"])
}

func TestPayloadDataKeepsCallerURL(t *testing.T) {
	raw, err := json.Marshal(Payload{Title: "Hi", URL: "/vendor/acme", Icon: "/i.png", Image: "/cover.png"})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "/i.png", decoded["icon"])
	require.Equal(t, "/cover.png", decoded["image"])
	require.Equal(t, map[string]any{"url": "/vendor/acme"}, decoded["data"])
}

func TestNewSenderFallsBackWithoutKeys(t *testing.T) {
	sender := NewSender(config.VAPIDConfig{}, nil, testLogger())
	require.Equal(t, "log", sender.Name())
	require.NoError(t, sender.Send(context.Background(), Subscription{Endpoint: "e"}, Payload{Title: "t"}))
}

func testSubscription(t *testing.T, endpoint string) Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return Subscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(secret),
	}
}

func TestWebPushSenderMapsStatuses(t *testing.T) {
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	cfg := config.VAPIDConfig{PublicKey: public, PrivateKey: private, Subject: "mailto:contact@koumale.com", TTLSeconds: 60}

	cases := []struct {
		status  int
		wantErr error
		ok      bool
	}{
		{status: http.StatusCreated, ok: true},
		{status: http.StatusGone, wantErr: ErrSubscriptionGone},
		{status: http.StatusNotFound, wantErr: ErrSubscriptionGone},
		{status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NotEmpty(t, r.Header.Get("Authorization"))
			w.WriteHeader(tc.status)
		}))
		sender := NewSender(cfg, server.Client(), testLogger())
		require.Equal(t, "webpush", sender.Name())

		err := sender.Send(context.Background(), testSubscription(t, server.URL), Payload{Title: "t"})
		switch {
		case tc.ok:
			require.NoError(t, err)
		case tc.wantErr != nil:
			require.ErrorIs(t, err, tc.wantErr)
		default:
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrSubscriptionGone)
		}
		server.Close()
	}
}

func TestDiscountPercentRounds(t *testing.T) {
	require.EqualValues(t, 20, DiscountPercent(decimal.RequireFromString("100"), decimal.RequireFromString("80")))
	require.EqualValues(t, 33, DiscountPercent(decimal.RequireFromString("30"), decimal.RequireFromString("20")))
	require.EqualValues(t, 0, DiscountPercent(decimal.RequireFromString("0"), decimal.RequireFromString("0")))
}
