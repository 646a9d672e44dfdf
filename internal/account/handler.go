package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes account directory endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	Number         string `json:"number"`
	Kind           string `json:"kind"`
	PIN            string `json:"pin"`
	InitialBalance int64  `json:"initial_balance"`
}

type accountResponse struct {
	Number             string    `json:"number"`
	Kind               Kind      `json:"kind"`
	Balance            int64     `json:"balance"`
	UsesWithdrawalCode bool      `json:"uses_withdrawal_codes"`
	Transactions       int       `json:"transactions"`
	CreatedAt          time.Time `json:"created_at"`
}

func toResponse(acct Account) accountResponse {
	return accountResponse{
		Number:             acct.Number,
		Kind:               acct.Kind,
		Balance:            acct.Balance,
		UsesWithdrawalCode: acct.Kind.UsesWithdrawalCodes(),
		Transactions:       len(acct.Transactions),
		CreatedAt:          acct.CreatedAt,
	}
}

// Open creates an account.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Open(c.UserContext(), OpenInput{
		Number:         req.Number,
		Kind:           kind,
		PIN:            req.PIN,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		if errors.Is(err, ErrExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(acct))
}

// Get returns the account view. The PIN hash and outstanding codes are never exposed.
func (h *Handler) Get(c *fiber.Ctx) error {
	acct, err := h.service.Get(c.UserContext(), c.Params("number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "could not load account")
	}
	return c.Status(http.StatusOK).JSON(toResponse(acct))
}
