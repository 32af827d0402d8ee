package funsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestApplyDeltaAccumulates(t *testing.T) {
	totals := FinancialTotals{TotalDeposit: 100}
	delta := &FinancialDelta{DepositDelta: f(50)}

	totals = totals.ApplyDelta(delta)
	require.Equal(t, float64(150), totals.TotalDeposit)

	// Re-delivery double-applies: deltas carry no idempotency key.
	totals = totals.ApplyDelta(delta)
	require.Equal(t, float64(200), totals.TotalDeposit)
}

func TestApplyDeltaMissingFieldsAddZero(t *testing.T) {
	totals := FinancialTotals{TotalBet: 10, TotalWin: 5}
	result := totals.ApplyDelta(&FinancialDelta{BetDelta: f(2)})

	require.Equal(t, float64(12), result.TotalBet)
	require.Equal(t, float64(5), result.TotalWin)
	require.Equal(t, float64(0), result.TotalDeposit)
}

func TestApplyDeltaAllFields(t *testing.T) {
	totals := FinancialTotals{
		TotalDeposit: 1, TotalWithdraw: 2, TotalBet: 3,
		TotalWin: 4, TotalLoss: 5, TotalProfit: 6,
	}
	result := totals.ApplyDelta(&FinancialDelta{
		DepositDelta:  f(10),
		WithdrawDelta: f(10),
		BetDelta:      f(10),
		WinDelta:      f(10),
		LossDelta:     f(10),
		ProfitDelta:   f(-10),
	})

	require.Equal(t, FinancialTotals{
		TotalDeposit: 11, TotalWithdraw: 12, TotalBet: 13,
		TotalWin: 14, TotalLoss: 15, TotalProfit: -4,
	}, result)
}

func TestApplyPatchPartialKeepsUnspecified(t *testing.T) {
	totals := FinancialTotals{TotalBet: 10, TotalWin: 5}
	result := totals.ApplyPatch(&FinancialPatch{TotalWin: f(8)})

	require.Equal(t, float64(10), result.TotalBet, "unspecified field unchanged")
	require.Equal(t, float64(8), result.TotalWin)
}

func TestApplyPatchExplicitZeroOverwrites(t *testing.T) {
	totals := FinancialTotals{TotalDeposit: 100}
	result := totals.ApplyPatch(&FinancialPatch{TotalDeposit: f(0)})
	require.Equal(t, float64(0), result.TotalDeposit,
		"an explicit zero is a provided value, not an omission")
}
