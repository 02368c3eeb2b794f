package handler

import (
	"context"

	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/service"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	subscription service.SubscriptionService
	newsletter   service.NewsletterService
	health       HealthChecker
	cfg          *config.Config
}

func New(subscription service.SubscriptionService, newsletter service.NewsletterService, health HealthChecker, cfg *config.Config) *Handler {
	return &Handler{
		subscription: subscription,
		newsletter:   newsletter,
		health:       health,
		cfg:          cfg,
	}
}
