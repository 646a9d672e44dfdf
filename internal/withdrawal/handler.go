package withdrawal

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/codes"
	"github.com/cashpoint/cashpoint/internal/ledger"
)

// Handler exposes the cash withdrawal endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a withdrawal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"`
	PIN           string `json:"pin"`
	Code          string `json:"code"`
}

type issueCodeRequest struct {
	AccountNumber string `json:"account_number"`
	PIN           string `json:"pin"`
}

type bill struct {
	Denomination int64 `json:"denomination"`
	Count        int   `json:"count"`
}

// Withdraw dispenses cash from an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Withdraw(c.UserContext(), Request{
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
		PIN:           req.PIN,
		Code:          req.Code,
	})
	if err != nil {
		return h.mapError(err)
	}

	bills := make([]bill, 0, len(res.Breakdown))
	for _, d := range h.service.Denominations() {
		if n := res.Breakdown[d]; n > 0 {
			bills = append(bills, bill{Denomination: d, Count: n})
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_number": res.AccountNumber,
		"amount":         res.Amount,
		"balance":        res.NewBalance,
		"bills":          bills,
		"transaction":    res.Transaction,
	})
}

// IssueCode generates a one-time withdrawal code for a wallet account.
func (h *Handler) IssueCode(c *fiber.Ctx) error {
	var req issueCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	issued, err := h.service.IssueCode(c.UserContext(), req.AccountNumber, req.PIN)
	if err != nil {
		return h.mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account_number": issued.AccountNumber,
		"code":           issued.Code,
		"expires_at":     issued.ExpiresAt,
	})
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf(
			"amount must be at least %d and a multiple of %d", h.service.MinAmount(), h.service.allocator.Smallest()))
	case errors.Is(err, ErrMissingCredential), errors.Is(err, codes.ErrNotSupported):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredential):
		return fiber.NewError(http.StatusUnauthorized, ErrInvalidCredential.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, ErrBusy):
		return fiber.NewError(http.StatusServiceUnavailable, ErrBusy.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "withdrawal could not be completed")
	}
}
