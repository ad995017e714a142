package controllers

import (
	"net/http"

	"github.com/angelmondragon/koumale-backend/api/middleware"
	"github.com/angelmondragon/koumale-backend/api/responses"
	"github.com/angelmondragon/koumale-backend/api/validators"
	"github.com/angelmondragon/koumale-backend/internal/push"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

func PushVAPIDKey(svc push.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := svc.VAPIDKey()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"publicKey": key})
	}
}

type subscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint" validate:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" validate:"required"`
			Auth   string `json:"auth" validate:"required"`
		} `json:"keys"`
	} `json:"subscription"`
}

// PushSubscribe upserts a browser subscription, attaching the caller when a
// token was presented.
func PushSubscribe(svc push.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body subscribeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := push.SubscribeInput{
			Endpoint:  body.Subscription.Endpoint,
			P256dh:    body.Subscription.Keys.P256dh,
			Auth:      body.Subscription.Keys.Auth,
			UserAgent: r.UserAgent(),
		}
		if userID, ok := middleware.UserUUIDFromContext(r.Context()); ok {
			input.UserID = &userID
		}

		if err := svc.Subscribe(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "subscribed", nil)
	}
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

func PushUnsubscribe(svc push.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body unsubscribeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unsubscribe(r.Context(), body.Endpoint); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "unsubscribed", nil)
	}
}
