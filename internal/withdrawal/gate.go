package withdrawal

import (
	"fmt"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/codes"
)

// Credential carries whatever the client supplied to authorize a withdrawal.
type Credential struct {
	PIN  string
	Code string
}

// Gate decides whether a credential authorizes a withdrawal on an account.
type Gate struct {
	registry *codes.Registry
}

// NewGate builds a gate that redeems codes through registry.
func NewGate(registry *codes.Registry) *Gate {
	return &Gate{registry: registry}
}

// Authorize checks the credential required by the account kind. For code
// accounts a successful check removes the code from acct.Codes; the caller
// decides whether that change is saved.
func (g *Gate) Authorize(acct *account.Account, cred Credential) error {
	if acct.Kind.UsesWithdrawalCodes() {
		if cred.Code == "" {
			return fmt.Errorf("%w: withdrawal code is required", ErrMissingCredential)
		}
		if err := g.registry.Consume(acct, cred.Code); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		return nil
	}

	return acct.VerifyPIN(cred.PIN)
}
