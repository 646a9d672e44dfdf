package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cashpoint/cashpoint/internal/withdrawal"
)

// RegisterWithdrawalRoutes wires code issuance and cash withdrawal. Both are
// throttled per account; withdrawals are additionally idempotent.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler, throttle, idempotent fiber.Handler) {
	r.Post("/withdrawals/codes", throttle, h.IssueCode)
	r.Post("/withdrawals", throttle, idempotent, h.Withdraw)
}
