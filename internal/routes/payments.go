package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cashpoint/cashpoint/internal/payments"
)

// RegisterPaymentRoutes wires deposit and transfer endpoints. Transfers debit
// the source account on its PIN and are throttled like withdrawals.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, throttle fiber.Handler) {
	r.Post("/accounts/:number/deposits", h.Deposit)
	r.Post("/transfers", throttle, h.Transfer)
}
