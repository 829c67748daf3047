package refbroker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/fixedpoint"
	"github.com/rishav/goldmine/internal/model"
)

type recordingReactor struct {
	orders chan *model.Order
	trades chan model.Trade
}

func newRecordingReactor() *recordingReactor {
	return &recordingReactor{orders: make(chan *model.Order, 32), trades: make(chan model.Trade, 32)}
}

func (r *recordingReactor) OnOrder(o *model.Order) { r.orders <- o }
func (r *recordingReactor) OnTrade(t model.Trade)  { r.trades <- t }

func waitOrder(t *testing.T, r *recordingReactor, want model.OrderState) *model.Order {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case o := <-r.orders:
			if o.State == want {
				return o
			}
		case <-deadline:
			t.Fatalf("timed out waiting for order state %s", want)
		}
	}
}

func TestAdapterRestsUnmatchedLimitOrder(t *testing.T) {
	a := New([]string{"ACME"}, []string{"AAPL"}, nil, zap.NewNop())
	defer a.Stop()
	reactor := newRecordingReactor()
	a.RegisterReactor(reactor)

	o := model.New(1, "ACME", "AAPL", fixedpoint.FromFloat(150), 10, model.Buy, model.Limit)
	require.NoError(t, a.SubmitOrder(o))

	got := waitOrder(t, reactor, model.Submitted)
	require.Equal(t, uint64(1), got.ClientAssignedID)

	mirrored, ok := a.Order(o.LocalID)
	require.True(t, ok)
	require.Equal(t, model.Submitted, mirrored.State)
}

func TestAdapterCrossesRestingOrderAndRoutesTrades(t *testing.T) {
	a := New([]string{"ACME", "MM1"}, []string{"AAPL"}, nil, zap.NewNop())
	defer a.Stop()
	reactor := newRecordingReactor()
	a.RegisterReactor(reactor)

	resting := model.New(1, "MM1", "AAPL", fixedpoint.FromFloat(150), 10, model.Sell, model.Limit)
	require.NoError(t, a.SubmitOrder(resting))
	waitOrder(t, reactor, model.Submitted)

	taker := model.New(2, "ACME", "AAPL", fixedpoint.FromFloat(150), 10, model.Buy, model.Limit)
	require.NoError(t, a.SubmitOrder(taker))

	// Both legs of the cross should reach Executed.
	first := waitOrder(t, reactor, model.Executed)
	second := waitOrder(t, reactor, model.Executed)
	gotLocalIDs := map[uint64]bool{first.LocalID: true, second.LocalID: true}
	require.True(t, gotLocalIDs[resting.LocalID])
	require.True(t, gotLocalIDs[taker.LocalID])

	select {
	case tr := <-reactor.trades:
		require.Equal(t, "AAPL", tr.Security)
		require.Equal(t, int64(10), tr.Quantity)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first trade")
	}
	select {
	case tr := <-reactor.trades:
		require.Equal(t, "AAPL", tr.Security)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second trade")
	}

	positions := a.Positions()
	require.Len(t, positions, 2)
}

func TestAdapterCancelRemovesRestingOrder(t *testing.T) {
	a := New([]string{"ACME"}, []string{"AAPL"}, nil, zap.NewNop())
	defer a.Stop()
	reactor := newRecordingReactor()
	a.RegisterReactor(reactor)

	o := model.New(5, "ACME", "AAPL", fixedpoint.FromFloat(150), 10, model.Buy, model.Limit)
	require.NoError(t, a.SubmitOrder(o))
	waitOrder(t, reactor, model.Submitted)

	require.NoError(t, a.CancelOrder(o))
	waitOrder(t, reactor, model.Cancelled)
}

func TestAdapterRejectsOversizedOrder(t *testing.T) {
	a := New([]string{"ACME"}, []string{"AAPL"}, nil, zap.NewNop())
	defer a.Stop()
	reactor := newRecordingReactor()
	a.RegisterReactor(reactor)

	huge := model.New(9, "ACME", "AAPL", fixedpoint.FromFloat(150), 10_000_000, model.Buy, model.Limit)
	require.NoError(t, a.SubmitOrder(huge))
	got := waitOrder(t, reactor, model.Rejected)
	require.NotEmpty(t, got.Message)
}
