// Package handlers implements the storefront job handlers.
package handlers

import (
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/cachegc"
	"go.yametee.shop/jobs/pkg/dispatch"
	"go.yametee.shop/jobs/pkg/jobs"
)

// Set holds the collaborators of all handlers.
type Set struct {
	Orders    OrderLoader
	Mailer    Mailer
	Forwarder Forwarder
	Warmer    Warmer
	Recent    *cachegc.Set // optional
	Log       *zap.Logger
}

// Register adds the handlers of all storefront job types to d.
func Register(d *dispatch.Dispatcher, s Set) {
	order := &Order{Orders: s.Orders, Log: s.Log.Named("order")}
	email := &Email{Mailer: s.Mailer, Log: s.Log.Named("email")}
	webhook := &Webhook{Forwarder: s.Forwarder, Log: s.Log.Named("webhook")}
	cacheWarm := &CacheWarm{Warmer: s.Warmer, Recent: s.Recent, Log: s.Log.Named("cache_warm")}
	d.Register(jobs.KindOrderProcess, dispatch.Func(order.Handle))
	d.Register(jobs.KindEmailSend, dispatch.Func(email.Handle))
	d.Register(jobs.KindWebhookProcess, dispatch.Func(webhook.Handle))
	d.Register(jobs.KindCacheWarm, dispatch.Func(cacheWarm.Handle))
}
