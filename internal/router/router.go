package router // route registration for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication beyond
// what the handlers themselves enforce. The health probe is deliberately
// left outside the rate limiter.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the auth endpoints. Register/login/refresh live
// under /v1/auth and need no session; /v1/me is protected. The limiter
// runs after JWTAuth on protected groups so its user key strategy sees
// the authenticated subject.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes either an Authorization header (all sessions) or a
	// refresh_token body (one session), so it skips the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("STAFF", "CUSTOMER"))
	auth.Use(limit)
	auth.GET("/me", a.Me)
}

// RegisterPublic wires the guest-facing surface: slot discovery,
// reservation creation and the whole payment flow. Payment routes stay
// public because the processor's redirect and webhook calls carry no
// session; the handlers verify everything against the processor instead.
// With no session the limiter keys on client IP and route only.
func RegisterPublic(e *echo.Echo, s *handler.SlotHandler, r *handler.ReservationHandler,
	co *handler.CheckoutHandler, wh *handler.WebhookHandler, cache, limit echo.MiddlewareFunc) {
	e.GET("/v1/slots", s.List, limit, cache)
	e.POST("/v1/reservations", r.Create, limit)

	e.POST("/v1/checkout", co.Start, limit)
	e.GET("/v1/checkout/confirm", co.ConfirmReturn, limit)
	e.GET("/simulated-checkout", co.SimulatedCheckout, limit)

	e.POST("/v1/payments/confirm", co.ConfirmAPI, limit)
	e.POST("/v1/payments/webhook", wh.Handle, limit)
}

// RegisterReservations wires the authenticated customer surface.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("STAFF", "CUSTOMER"))
	g.Use(limit)
	g.GET("", r.List)
	g.GET("/:id", r.Detail)
	g.POST("/:id/cancel", r.Cancel)
}

// RegisterAdmin wires the staff-only surface, including the override
// escape hatch and the CSV exports.
func RegisterAdmin(e *echo.Echo, a *handler.AdminReservationHandler, cust *handler.AdminCustomerHandler,
	jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("STAFF"))
	g.Use(limit)
	g.GET("/reservations", a.List)
	g.GET("/reservations/export", a.ExportCSV)
	g.GET("/reservations/:id", a.Detail)
	g.PATCH("/reservations/:id", a.Override)
	g.GET("/customers", cust.List)
	g.GET("/customers/export", cust.ExportCSV)
}
