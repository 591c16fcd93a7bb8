package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBacktestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultBacktestParams().Validate())

	p := DefaultBacktestParams()
	p.MonthlyInvestment = decimal.Zero
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultBacktestParams()
	p.Mode = "weekly"
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}

func TestPortfolioState_Value(t *testing.T) {
	st := PortfolioState{
		Cash:   decimal.RequireFromString("-500"),
		Shares: decimal.RequireFromString("1000"),
	}
	assert.True(t, st.Value(decimal.RequireFromString("1.25")).Equal(decimal.RequireFromString("750")))
}

func TestBacktestResult_ExcessReturn(t *testing.T) {
	r := BacktestResult{
		FinalReturn:     decimal.RequireFromString("0.30"),
		BenchmarkReturn: decimal.RequireFromString("0.12"),
	}
	assert.True(t, r.ExcessReturn().Equal(decimal.RequireFromString("0.18")))
	assert.True(t, r.Start().IsZero())
}
