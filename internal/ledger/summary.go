// Package ledger holds the pure reconciliation arithmetic: reducing a
// session's transaction ledger to a financial summary and classifying the
// resulting discrepancy. No IO, no side effects — everything here is a pure
// function of its inputs, over decimal-safe arithmetic only.
package ledger

import (
	"easypos/internal/model"

	"github.com/shopspring/decimal"
)

// FinancialSummary is the derived financial picture of one session. It has
// no identity of its own and is recomputed from the ledger on demand.
type FinancialSummary struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	CashSales     decimal.Decimal `json:"cash_sales"`
	CardSales     decimal.Decimal `json:"card_sales"`
	PixSales      decimal.Decimal `json:"pix_sales"`
	SalesTotal    decimal.Decimal `json:"sales_total"`
	Withdrawals   decimal.Decimal `json:"withdrawals"`
	Supplies      decimal.Decimal `json:"supplies"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	CountedAmount decimal.Decimal `json:"counted_amount"`
	Difference    decimal.Decimal `json:"difference"`
	// DifferencePercent is difference/expectedCash × 100, rounded to two
	// decimal places half-up; zero when expectedCash is not positive.
	DifferencePercent decimal.Decimal `json:"difference_percent"`
}

var hundred = decimal.NewFromInt(100)

// Summarize reduces a session's ledger to its FinancialSummary. Only sale,
// withdrawal and supply entries enter the arithmetic; opening, closing and
// adjustment entries are bookkeeping markers. Summation is order-independent.
func Summarize(openingAmount decimal.Decimal, txs []model.CashTransaction, countedAmount decimal.Decimal) FinancialSummary {
	s := FinancialSummary{
		OpeningAmount: openingAmount,
		CountedAmount: countedAmount,
	}

	for _, tx := range txs {
		switch tx.Type {
		case model.TxSale:
			if tx.PaymentMethod == nil {
				continue
			}
			switch *tx.PaymentMethod {
			case model.PayCash:
				s.CashSales = s.CashSales.Add(tx.Amount)
			case model.PayDebit, model.PayCredit:
				s.CardSales = s.CardSales.Add(tx.Amount)
			case model.PayPix:
				s.PixSales = s.PixSales.Add(tx.Amount)
			}
		case model.TxWithdrawal:
			s.Withdrawals = s.Withdrawals.Add(tx.Amount)
		case model.TxSupply:
			s.Supplies = s.Supplies.Add(tx.Amount)
		}
	}

	s.SalesTotal = s.CashSales.Add(s.CardSales).Add(s.PixSales)
	s.ExpectedCash = openingAmount.Add(s.CashSales).Sub(s.Withdrawals).Add(s.Supplies)
	s.Difference = countedAmount.Sub(s.ExpectedCash)
	if s.ExpectedCash.IsPositive() {
		s.DifferencePercent = s.Difference.Div(s.ExpectedCash).Mul(hundred).Round(2)
	}
	return s
}

// WithdrawableBalance is how much cash has accumulated beyond the opening
// float: cashSales + supplies − withdrawals. A withdrawal may never drive it
// below zero.
func WithdrawableBalance(openingAmount decimal.Decimal, txs []model.CashTransaction) decimal.Decimal {
	s := Summarize(openingAmount, txs, decimal.Zero)
	return s.ExpectedCash.Sub(openingAmount)
}
