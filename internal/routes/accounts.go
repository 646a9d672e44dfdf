package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/ledger"
)

// RegisterAccountRoutes wires the account directory and history endpoints.
// History needs the account PIN, so it shares the credential throttle.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, history *ledger.Handler, throttle fiber.Handler) {
	r.Post("/accounts", h.Open)
	r.Get("/accounts/:number", h.Get)
	r.Get("/accounts/:number/transactions", throttle, history.History)
}
