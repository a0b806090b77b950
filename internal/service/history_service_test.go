package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easypos/internal/apierror"
	"easypos/internal/dto"
	"easypos/internal/ledger"
)

func newHistoryFixture(t *testing.T) (*closureFixture, HistoryService) {
	t.Helper()
	f := newClosureFixture(t)
	return f, NewHistoryService(f.repo, f.docs, testConfig().Thresholds)
}

func TestHistoryListStatisticsCoverMatchedSet(t *testing.T) {
	f, history := newHistoryFixture(t)

	f.closedSession(t, "100.00") // normal
	f.closedSession(t, "99.25")  // −0.75% → warning
	f.closedSession(t, "90.00")  // −10% → alert

	page, err := history.List(context.Background(), dto.HistoryFilter{})
	require.NoError(t, err)

	assert.Len(t, page.Data, 3)
	assert.Equal(t, 3, page.Statistics.Total)
	assert.Equal(t, 1, page.Statistics.Normal)
	assert.Equal(t, 1, page.Statistics.Warning)
	assert.Equal(t, 1, page.Statistics.Alert)
	// 0 + (−0.75) + (−10)
	assert.True(t, page.Statistics.DifferenceSum.Equal(d("-10.75")), "sum: %s", page.Statistics.DifferenceSum)
}

func TestHistoryListFiltersByClassification(t *testing.T) {
	f, history := newHistoryFixture(t)

	f.closedSession(t, "100.00")
	f.closedSession(t, "90.00")

	tier := ledger.ClassAlert
	page, err := history.List(context.Background(), dto.HistoryFilter{Classification: &tier})
	require.NoError(t, err)

	require.Len(t, page.Data, 1)
	assert.Equal(t, ledger.ClassAlert, page.Data[0].Classification)
	// The tier filter narrows the rows, never the statistics
	assert.Equal(t, 2, page.Statistics.Total)
	assert.Equal(t, 1, page.Statistics.Normal)
	assert.Equal(t, 1, page.Statistics.Alert)
}

func TestHistoryListFiltersByOperator(t *testing.T) {
	f, history := newHistoryFixture(t)
	f.closedSession(t, "100.00")

	other := uuid.NewString()
	page, err := history.List(context.Background(), dto.HistoryFilter{OperatorID: &other})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	mine := f.operatorID.String()
	page, err = history.List(context.Background(), dto.HistoryFilter{OperatorID: &mine})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
}

func TestHistoryListRejectsBadInput(t *testing.T) {
	_, history := newHistoryFixture(t)

	bad := "not-a-uuid"
	_, err := history.List(context.Background(), dto.HistoryFilter{OperatorID: &bad})
	assert.Equal(t, apierror.KindInvalidInput, kindOf(t, err))
}

func TestHistoryListPaginates(t *testing.T) {
	f, history := newHistoryFixture(t)
	for i := 0; i < 5; i++ {
		f.closedSession(t, "100.00")
	}

	page, err := history.List(context.Background(), dto.HistoryFilter{Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Page)
	// Statistics still describe all five closures, not the slice
	assert.Equal(t, 5, page.Statistics.Total)

	page, err = history.List(context.Background(), dto.HistoryFilter{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestHistoryDocumentLabel(t *testing.T) {
	f, history := newHistoryFixture(t)
	sessionID := f.closedSession(t, "100.00")

	page, err := history.List(context.Background(), dto.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "pending", page.Data[0].DocumentLabel)

	_, err = f.closures.Generate(context.Background(), sessionID, f.operatorID)
	require.NoError(t, err)

	page, err = history.List(context.Background(), dto.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, "#000001", page.Data[0].DocumentLabel)
}

func TestHistoryDetails(t *testing.T) {
	f, history := newHistoryFixture(t)

	resp := openSession(t, f.sessions, f.registerID, f.operatorID, "100.00")
	require.NoError(t, f.sessions.RecordSale(context.Background(), f.operatorID, dto.RecordSaleRequest{
		SessionID:     resp.ID,
		PaymentMethod: "cash",
		Amount:        d("50.00"),
		Description:   "order 200",
	}))
	_, err := f.sessions.Close(context.Background(), f.operatorID, dto.CloseSessionRequest{
		SessionID:     resp.ID,
		CountedAmount: d("150.00"),
	})
	require.NoError(t, err)
	sessionID := uuid.MustParse(resp.ID)

	details, err := history.Details(context.Background(), sessionID)
	require.NoError(t, err)

	assert.Equal(t, resp.ID, details.Session.ID)
	assert.True(t, details.Summary.ExpectedCash.Equal(d("150.00")))
	// opening + sale + closing
	assert.Len(t, details.Transactions, 3)
	assert.Nil(t, details.Document)

	_, err = f.closures.Generate(context.Background(), sessionID, f.operatorID)
	require.NoError(t, err)

	details, err = history.Details(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, details.Document)
	assert.Equal(t, int64(1), details.Document.DocumentNumber)
}

func TestHistoryDetailsUnknownSession(t *testing.T) {
	_, history := newHistoryFixture(t)
	_, err := history.Details(context.Background(), uuid.New())
	assert.Equal(t, apierror.KindSessionNotFound, kindOf(t, err))
}
