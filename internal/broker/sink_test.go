package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rishav/goldmine/internal/model"
	"github.com/rishav/goldmine/internal/wire"
)

func TestTradeSinkPumpDeliversEnqueuedTrade(t *testing.T) {
	reg := newTestRegistry(t)
	acc, err := reg.Listen("inproc://sink-dest")
	require.NoError(t, err)
	defer acc.Close()

	pump := newTradeSinkPump(reg, "inproc://sink-dest", zap.NewNop())
	go pump.run()
	defer pump.stop()

	line, err := acc.WaitConnection(2 * time.Second)
	require.NoError(t, err)
	require.NotNil(t, line)
	proto := wire.NewProtocol(line)

	trade := model.Trade{OrderID: 1, Account: "ACME", Security: "AAPL", Operation: model.Buy, Timestamp: time.Now().UTC()}
	pump.enqueue(trade)

	msg, err := proto.Read()
	require.NoError(t, err)
	got, err := tradeFromPayload(msg.Frame(1))
	require.NoError(t, err)
	require.Equal(t, trade.OrderID, got.OrderID)
	require.Equal(t, "AAPL", got.Security)
}

func TestTradeSinkPumpStopDrainsWithoutDeadlock(t *testing.T) {
	reg := newTestRegistry(t)
	pump := newTradeSinkPump(reg, "inproc://sink-nodest", zap.NewNop())

	done := make(chan struct{})
	go func() {
		pump.run()
		close(done)
	}()

	pump.stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump.run did not return after stop")
	}
}
