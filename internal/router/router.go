package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-abroad-marketplace/internal/handler"
	"github.com/iliyamo/study-abroad-marketplace/internal/middleware"
	"github.com/iliyamo/study-abroad-marketplace/internal/model"
)

// Limits holds the token bucket middleware of each rate-limit profile.
type Limits struct {
	API     echo.MiddlewareFunc
	Auth    echo.MiddlewareFunc
	Webhook echo.MiddlewareFunc
}

// Guard authenticates protected groups: a valid access token whose account
// is still active. A nil Users skips the active check.
type Guard struct {
	Secret string
	Users  middleware.ActiveChecker
}

func (g Guard) chain(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return append([]echo.MiddlewareFunc{middleware.JWTAuth(g.Secret), middleware.RequireActive(g.Users)}, extra...)
}

// RegisterRoutes registers the unauthenticated health endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", h.Ready)
}

// RegisterAuth registers the account endpoints. Register, login, refresh
// and logout live under /v1/auth behind the auth limiter; /v1/me needs a
// valid access token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard Guard, lim Limits) {
	g := e.Group("/v1/auth", lim.Auth)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", guard.chain(lim.API)...)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the catalogue. Responses go through the Redis
// response cache; admin writes purge it.
func RegisterPublic(e *echo.Echo, p *handler.CatalogueHandler, cache echo.MiddlewareFunc, lim Limits) {
	g := e.Group("/v1", lim.API, cache)
	g.GET("/institutions", p.ListInstitutions)
	g.GET("/institutions/:id", p.GetInstitution)
	g.GET("/programs", p.ListPrograms)
	g.GET("/programs/:id", p.GetProgram)
	g.GET("/countries", p.Countries)
}

// RegisterAdmin registers the admin console under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, pay *handler.PaymentHandler, guard Guard, lim Limits) {
	g := e.Group("/v1/admin", guard.chain(middleware.RequireRole(model.RoleAdmin), lim.API)...)
	g.GET("/stats", h.Stats)
	g.GET("/analytics", h.Analytics)
	g.GET("/users", h.Users)
	g.GET("/users/:id", h.UserDetail)
	g.PATCH("/users/:id/active", h.SetUserActive)
	g.GET("/applications", h.Applications)
	g.POST("/applications/:id/decision", h.Decide)
	g.GET("/payments", pay.List)
	g.POST("/payments/:id/refund", pay.Refund)
	g.GET("/institutions", h.Institutions)
	g.POST("/institutions", h.CreateInstitution)
	g.PUT("/institutions/:id", h.UpdateInstitution)
	g.POST("/institutions/:id/programs", h.CreateProgram)
	g.GET("/programs", h.Programs)
	g.PUT("/programs/:id", h.UpdateProgram)
	g.GET("/logs", h.Logs)
}
