package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-abroad-marketplace/internal/handler"
	"github.com/iliyamo/study-abroad-marketplace/internal/middleware"
	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// RegisterStudent registers the application lifecycle endpoints. Creating
// an application needs the student role; the rest are checked against the
// owner (or admin) inside the services.
func RegisterStudent(e *echo.Echo, h *handler.ApplicationHandler, pay *handler.PaymentHandler, guard Guard, lim Limits) {
	g := e.Group("/v1", guard.chain(lim.API)...)

	g.POST("/programs/:id/applications", h.Create, middleware.RequireRole(model.RoleStudent))
	g.GET("/applications", h.ListMine)
	g.GET("/applications/:id", h.Get)
	g.GET("/applications/:id/status", h.Status)
	g.POST("/applications/:id/submit", h.Submit)
	g.POST("/applications/:id/payments", pay.Initiate)
	g.GET("/dashboard", h.Dashboard)
}

// RegisterPayments registers payment history, the browser return paths and
// the provider webhook. The webhook is unauthenticated and verified by its
// signature instead.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, guard Guard, lim Limits) {
	g := e.Group("/v1/payments", guard.chain(lim.API)...)
	g.GET("", h.History)
	g.GET("/success", h.Success)
	g.GET("/cancel", h.Cancel)
	g.GET("/:id/status", h.Status)
	g.POST("/:id/refund", h.Refund)

	e.POST("/v1/webhooks/stripe", h.Webhook, lim.Webhook)
}
