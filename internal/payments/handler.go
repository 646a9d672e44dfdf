package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/ledger"
	"github.com/cashpoint/cashpoint/internal/lock"
)

// Handler exposes deposit and transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

type transferRequest struct {
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      int64  `json:"amount"`
	PIN         string `json:"pin"`
}

// Deposit credits the account named in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Deposit(c.UserContext(), DepositInput{AccountNumber: c.Params("number"), Amount: req.Amount})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account_number": res.AccountNumber,
		"balance":        res.Balance,
		"transaction_id": res.Transaction.ID,
		"completed_at":   res.Transaction.At,
	})
}

// Transfer moves funds between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromAccount: req.FromAccount,
		ToAccount:   req.ToAccount,
		Amount:      req.Amount,
		PIN:         req.PIN,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"from_balance":   res.FromBalance,
		"to_balance":     res.ToBalance,
		"completed_at":   res.CompletedAt,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, ErrSameAccount), errors.Is(err, account.ErrMissingCredential):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInvalidCredential):
		return fiber.NewError(http.StatusUnauthorized, account.ErrInvalidCredential.Error())
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, lock.ErrBusy):
		return fiber.NewError(http.StatusServiceUnavailable, lock.ErrBusy.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "could not complete payment")
	}
}
