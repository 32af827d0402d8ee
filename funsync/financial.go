// Copyright 2025 FUN Profile
// SPDX-License-Identifier: Apache-2.0

package funsync

// FinancialTotals are the six running counters tracked per (user, platform).
// All default to zero when no prior row exists.
type FinancialTotals struct {
	TotalDeposit  float64 `json:"total_deposit"`
	TotalWithdraw float64 `json:"total_withdraw"`
	TotalBet      float64 `json:"total_bet"`
	TotalWin      float64 `json:"total_win"`
	TotalLoss     float64 `json:"total_loss"`
	TotalProfit   float64 `json:"total_profit"`
}

// FinancialPatch is an absolute-value update. Nil fields keep the stored
// value unchanged, so a partial patch is a field-level merge, not a replace.
type FinancialPatch struct {
	TotalDeposit  *float64 `json:"total_deposit"`
	TotalWithdraw *float64 `json:"total_withdraw"`
	TotalBet      *float64 `json:"total_bet"`
	TotalWin      *float64 `json:"total_win"`
	TotalLoss     *float64 `json:"total_loss"`
	TotalProfit   *float64 `json:"total_profit"`
}

// FinancialDelta is an additive update applied on top of the stored totals.
// Missing fields count as zero. Deltas are assumed to report "since last
// sync" increments; a retried delta request double-applies. There is no
// idempotency key, so callers own retry semantics.
type FinancialDelta struct {
	DepositDelta  *float64 `json:"deposit_delta"`
	WithdrawDelta *float64 `json:"withdraw_delta"`
	BetDelta      *float64 `json:"bet_delta"`
	WinDelta      *float64 `json:"win_delta"`
	LossDelta     *float64 `json:"loss_delta"`
	ProfitDelta   *float64 `json:"profit_delta"`
}

// ApplyDelta returns the totals with each delta field added in.
func (t FinancialTotals) ApplyDelta(d *FinancialDelta) FinancialTotals {
	return FinancialTotals{
		TotalDeposit:  t.TotalDeposit + deref(d.DepositDelta),
		TotalWithdraw: t.TotalWithdraw + deref(d.WithdrawDelta),
		TotalBet:      t.TotalBet + deref(d.BetDelta),
		TotalWin:      t.TotalWin + deref(d.WinDelta),
		TotalLoss:     t.TotalLoss + deref(d.LossDelta),
		TotalProfit:   t.TotalProfit + deref(d.ProfitDelta),
	}
}

// ApplyPatch returns the totals with provided fields replaced and
// unspecified fields kept.
func (t FinancialTotals) ApplyPatch(p *FinancialPatch) FinancialTotals {
	return FinancialTotals{
		TotalDeposit:  pick(p.TotalDeposit, t.TotalDeposit),
		TotalWithdraw: pick(p.TotalWithdraw, t.TotalWithdraw),
		TotalBet:      pick(p.TotalBet, t.TotalBet),
		TotalWin:      pick(p.TotalWin, t.TotalWin),
		TotalLoss:     pick(p.TotalLoss, t.TotalLoss),
		TotalProfit:   pick(p.TotalProfit, t.TotalProfit),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func pick(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
