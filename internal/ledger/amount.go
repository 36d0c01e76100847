package ledger

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

// AmountScale is the number of decimal places balances are stored with.
const AmountScale = 2

// CheckAmount rejects non-positive amounts and amounts finer than a cent.
// Values are never rounded; 100.004 is refused rather than treated as 100.00.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount supports at most two decimal places").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	return nil
}
