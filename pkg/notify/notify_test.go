package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	zledger "github.com/zchainfoundation/zledger/pkg"
)

func TestZMQNotifierQueueBounds(t *testing.T) {
	// service not running: events queue until the bound, then Notify
	// reports the drop instead of blocking block processing
	n := NewZMQNotifier("tcp://127.0.0.1:0")

	event := zledger.RewardEvent{Miner: "miner1", Height: 1}
	for i := 0; i < 64; i++ {
		require.NoError(t, n.Notify(event))
	}
	err := n.Notify(event)
	require.True(t, zledger.IsError(err, zledger.NotAvailable), "got %v", err)
}

func TestEventLoggerSubscriberChannel(t *testing.T) {
	l := NewEventLogger(t.TempDir() + "/events.log")
	require.NotNil(t, l.GetChan())
	require.NotNil(t, l.Log)
}
