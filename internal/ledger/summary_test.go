package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easypos/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sale(method, amount string) model.CashTransaction {
	m := method
	return model.CashTransaction{Type: model.TxSale, PaymentMethod: &m, Amount: d(amount)}
}

func entry(txType, amount string) model.CashTransaction {
	return model.CashTransaction{Type: txType, Amount: d(amount)}
}

func TestSummarizeBalancedShift(t *testing.T) {
	// Opening 100, cash sale 50, pix sale 30, withdrawal 20.
	// Expected cash = 100 + 50 − 20 = 130; counted 130 → no difference.
	txs := []model.CashTransaction{
		sale(model.PayCash, "50.00"),
		sale(model.PayPix, "30.00"),
		entry(model.TxWithdrawal, "20.00"),
	}

	s := Summarize(d("100.00"), txs, d("130.00"))

	assert.True(t, s.CashSales.Equal(d("50.00")), "cash sales: %s", s.CashSales)
	assert.True(t, s.PixSales.Equal(d("30.00")), "pix sales: %s", s.PixSales)
	assert.True(t, s.SalesTotal.Equal(d("80.00")), "sales total: %s", s.SalesTotal)
	assert.True(t, s.Withdrawals.Equal(d("20.00")))
	assert.True(t, s.ExpectedCash.Equal(d("130.00")), "expected cash: %s", s.ExpectedCash)
	assert.True(t, s.Difference.IsZero(), "difference: %s", s.Difference)
	assert.True(t, s.DifferencePercent.IsZero())
}

func TestSummarizeShortDrawer(t *testing.T) {
	// Same shift but counted 125: difference −5, −3.85% of expected 130.
	txs := []model.CashTransaction{
		sale(model.PayCash, "50.00"),
		sale(model.PayPix, "30.00"),
		entry(model.TxWithdrawal, "20.00"),
	}

	s := Summarize(d("100.00"), txs, d("125.00"))

	assert.True(t, s.Difference.Equal(d("-5.00")), "difference: %s", s.Difference)
	assert.True(t, s.DifferencePercent.Equal(d("-3.85")), "pct: %s", s.DifferencePercent)
	assert.Equal(t, ClassAlert, Classify(s.DifferencePercent, DefaultThresholds()))
}

func TestSummarizeOnlyCashEntersExpected(t *testing.T) {
	// Card and pix sales count toward sales totals but never toward the
	// drawer expectation.
	txs := []model.CashTransaction{
		sale(model.PayDebit, "200.00"),
		sale(model.PayCredit, "300.00"),
		sale(model.PayPix, "150.00"),
	}

	s := Summarize(d("100.00"), txs, d("100.00"))

	assert.True(t, s.CardSales.Equal(d("500.00")))
	assert.True(t, s.SalesTotal.Equal(d("650.00")))
	assert.True(t, s.ExpectedCash.Equal(d("100.00")))
	assert.True(t, s.Difference.IsZero())
}

func TestSummarizeIgnoresBookkeepingEntries(t *testing.T) {
	// Opening, closing and adjustment entries are markers, not balance input.
	txs := []model.CashTransaction{
		entry(model.TxOpening, "100.00"),
		sale(model.PayCash, "40.00"),
		entry(model.TxAdjustment, "999.00"),
		entry(model.TxClosing, "140.00"),
	}

	s := Summarize(d("100.00"), txs, d("140.00"))

	assert.True(t, s.ExpectedCash.Equal(d("140.00")), "expected cash: %s", s.ExpectedCash)
	assert.True(t, s.Difference.IsZero())
}

func TestSummarizeSupplies(t *testing.T) {
	txs := []model.CashTransaction{
		sale(model.PayCash, "10.00"),
		entry(model.TxSupply, "50.00"),
		entry(model.TxWithdrawal, "30.00"),
	}

	s := Summarize(d("100.00"), txs, d("130.00"))

	// 100 + 10 − 30 + 50
	assert.True(t, s.ExpectedCash.Equal(d("130.00")), "expected cash: %s", s.ExpectedCash)
}

func TestSummarizeOrderIndependent(t *testing.T) {
	txs := []model.CashTransaction{
		sale(model.PayCash, "12.34"),
		sale(model.PayCash, "56.78"),
		sale(model.PayDebit, "90.12"),
		sale(model.PayPix, "3.45"),
		entry(model.TxWithdrawal, "20.00"),
		entry(model.TxSupply, "15.50"),
		entry(model.TxWithdrawal, "1.99"),
	}
	base := Summarize(d("150.00"), txs, d("200.00"))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]model.CashTransaction, len(txs))
		copy(shuffled, txs)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Summarize(d("150.00"), shuffled, d("200.00"))
		require.True(t, got.ExpectedCash.Equal(base.ExpectedCash))
		require.True(t, got.Difference.Equal(base.Difference))
		require.True(t, got.SalesTotal.Equal(base.SalesTotal))
	}
}

func TestSummarizePercentZeroWhenExpectedNotPositive(t *testing.T) {
	// Withdrawals can drive expected cash to zero; the percentage must not
	// divide by it.
	txs := []model.CashTransaction{
		entry(model.TxWithdrawal, "100.00"),
	}
	s := Summarize(d("100.00"), txs, d("5.00"))

	assert.True(t, s.ExpectedCash.IsZero())
	assert.True(t, s.Difference.Equal(d("5.00")))
	assert.True(t, s.DifferencePercent.IsZero())
}

func TestWithdrawableBalance(t *testing.T) {
	txs := []model.CashTransaction{
		sale(model.PayCash, "80.00"),
		sale(model.PayDebit, "500.00"), // card money is not in the drawer
		entry(model.TxSupply, "20.00"),
		entry(model.TxWithdrawal, "30.00"),
	}
	got := WithdrawableBalance(d("100.00"), txs)

	// 80 + 20 − 30; the opening float is untouchable
	assert.True(t, got.Equal(d("70.00")), "withdrawable: %s", got)
}

func TestWithdrawableBalanceEmptyLedger(t *testing.T) {
	got := WithdrawableBalance(d("100.00"), nil)
	assert.True(t, got.IsZero())
}
