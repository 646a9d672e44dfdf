package ledger

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cashpoint/cashpoint/internal/account"
)

// Handler serves account history.
type Handler struct {
	ledger   *Ledger
	accounts *account.Service
}

// NewHandler constructs a history handler.
func NewHandler(ledger *Ledger, accounts *account.Service) *Handler {
	return &Handler{ledger: ledger, accounts: accounts}
}

// PINHeader carries the account PIN on read-only requests.
const PINHeader = "X-Account-PIN"

// History lists the account movements oldest first. The holder's PIN is
// required in PINHeader. The optional kind query parameter (deposit,
// withdrawal, transfer) filters the list.
func (h *Handler) History(c *fiber.Ctx) error {
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	acct, err := h.accounts.Get(c.UserContext(), c.Params("number"))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "could not load account")
	}
	if err := acct.VerifyPIN(c.Get(PINHeader)); err != nil {
		if errors.Is(err, account.ErrMissingCredential) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusUnauthorized, account.ErrInvalidCredential.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_number": acct.Number,
		"transactions":   h.ledger.History(acct, kind),
	})
}

func parseKind(raw string) (account.TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "deposit":
		return account.TransactionDeposit, nil
	case "withdrawal":
		return account.TransactionWithdrawal, nil
	case "transfer":
		return account.TransactionTransfer, nil
	}
	return "", errors.New("kind must be one of deposit, withdrawal, transfer")
}
