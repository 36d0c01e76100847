package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

func TestCheckAmount(t *testing.T) {
	for _, raw := range []string{"0.01", "100", "100.00", "100.10", "100.500"} {
		assert.NoError(t, CheckAmount(decimal.RequireFromString(raw)), raw)
	}
	for _, raw := range []string{"0", "-1", "0.004", "100.004", "-0.001"} {
		err := CheckAmount(decimal.RequireFromString(raw))
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount), raw)
	}
}
