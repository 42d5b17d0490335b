package controllers

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"needthisdone-payments/dedup"
	"needthisdone-payments/middlewares"
	"needthisdone-payments/payments"
)

// Options carries the dependencies of Controller.
type Options struct {
	DB       *gorm.DB
	Auth     *middlewares.Auth
	Payments *payments.Service
	Guard    *dedup.Guard

	AdminRegistrationKey string
	WebhookSecret        string

	// Health pings the backing stores; nil reports healthy.
	Health func(ctx context.Context) error
	Log    *zap.Logger
}

// Controller holds the HTTP handlers.
type Controller struct {
	db       *gorm.DB
	auth     *middlewares.Auth
	payments *payments.Service
	guard    *dedup.Guard

	adminKey      string
	webhookSecret string

	health func(ctx context.Context) error
	log    *zap.Logger
}

func New(opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		db:            opts.DB,
		auth:          opts.Auth,
		payments:      opts.Payments,
		guard:         opts.Guard,
		adminKey:      opts.AdminRegistrationKey,
		webhookSecret: opts.WebhookSecret,
		health:        opts.Health,
		log:           log,
	}
}
