package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

const fanOutConcurrency = 8

type subscriptionStore interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	DeleteByEndpoint(ctx context.Context, endpoint string) (bool, error)
	ForAudience(ctx context.Context, audience Audience) ([]models.PushSubscription, error)
}

// SubscribeInput is a browser PushSubscription plus the optional caller.
type SubscribeInput struct {
	Endpoint  string
	P256dh    string
	Auth      string
	UserID    *uuid.UUID
	UserAgent string
}

// Report summarizes one broadcast.
type Report struct {
	Targeted int
	Sent     int
	Removed  int
	Failed   int
}

// Service manages subscriptions and broadcasts payloads to audiences.
type Service interface {
	VAPIDKey() (string, error)
	Subscribe(ctx context.Context, input SubscribeInput) error
	Unsubscribe(ctx context.Context, endpoint string) error
	Send(ctx context.Context, audience Audience, payload Payload) (Report, error)
}

// ServiceParams groups the push service collaborators.
type ServiceParams struct {
	Store     subscriptionStore
	Sender    Sender
	PublicKey string
	Logg      *logger.Logger
}

type service struct {
	store     subscriptionStore
	sender    Sender
	publicKey string
	logg      *logger.Logger
}

// NewService builds the push service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("subscription store required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("push sender required")
	}
	if params.Logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		store:     params.Store,
		sender:    params.Sender,
		publicKey: params.PublicKey,
		logg:      params.Logg,
	}, nil
}

func (s *service) VAPIDKey() (string, error) {
	if s.publicKey == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "vapid public key not configured")
	}
	return s.publicKey, nil
}

func (s *service) Subscribe(ctx context.Context, input SubscribeInput) error {
	endpoint := strings.TrimSpace(input.Endpoint)
	if endpoint == "" || input.P256dh == "" || input.Auth == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription")
	}
	sub := &models.PushSubscription{
		Endpoint: endpoint,
		P256dh:   input.P256dh,
		Auth:     input.Auth,
		UserID:   input.UserID,
	}
	if ua := strings.TrimSpace(input.UserAgent); ua != "" {
		sub.UserAgent = &ua
	}
	if err := s.store.Upsert(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save push subscription")
	}
	return nil
}

func (s *service) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "endpoint required")
	}
	if _, err := s.store.DeleteByEndpoint(ctx, endpoint); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete push subscription")
	}
	return nil
}

// Send delivers payload to every subscription of audience. Gone endpoints
// are deleted. The returned error aggregates delivery failures; partial
// delivery is reported in Report.
func (s *service) Send(ctx context.Context, audience Audience, payload Payload) (Report, error) {
	ctx = s.logg.WithField(ctx, "audience", audience.String())
	subs, err := s.store.ForAudience(ctx, audience)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load push subscriptions")
	}

	report := Report{Targeted: len(subs)}
	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
		sem  = make(chan struct{}, fanOutConcurrency)
	)
	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub models.PushSubscription) {
			defer wg.Done()
			defer func() { <-sem }()

			removed, err := s.deliver(ctx, sub, payload)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case removed:
				report.Removed++
			case err != nil:
				report.Failed++
				errs = multierr.Append(errs, err)
			default:
				report.Sent++
			}
		}(sub)
	}
	wg.Wait()

	ctx = s.logg.WithFields(ctx, map[string]any{
		"targeted": report.Targeted,
		"sent":     report.Sent,
		"removed":  report.Removed,
		"failed":   report.Failed,
	})
	if errs != nil {
		s.logg.Warn(ctx, "push.broadcast_partial")
		return report, errs
	}
	s.logg.Info(ctx, "push.broadcast_completed")
	return report, nil
}

func (s *service) deliver(ctx context.Context, sub models.PushSubscription, payload Payload) (bool, error) {
	err := s.sender.Send(ctx, Subscription{Endpoint: sub.Endpoint, P256dh: sub.P256dh, Auth: sub.Auth}, payload)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrSubscriptionGone) {
		return false, fmt.Errorf("endpoint %s: %w", sub.Endpoint, err)
	}
	if _, delErr := s.store.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
		return false, fmt.Errorf("remove gone endpoint %s: %w", sub.Endpoint, delErr)
	}
	return true, nil
}
