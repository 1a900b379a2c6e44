// Package notify carries ledger events out of process: a ZMQ
// publisher feeding the peer-chain relay, and a rotating-file event
// logger. Everything here is best-effort; a lost notification never
// unwinds committed ledger state.
package notify

import (
	"context"
	"encoding/json"

	zmq "github.com/pebbe/zmq4"

	zledger "github.com/zchainfoundation/zledger/pkg"
)

// Topic prefix the peer-chain relay subscribes to.
const rewardTopic = "xchain.reward"

// ZMQNotifier publishes reward events on a PUB socket. The socket is
// owned by the service goroutine (ZMQ sockets are not thread-safe);
// Notify hands events over a bounded queue and reports a full queue
// as an error for the caller to log.
type ZMQNotifier struct {
	bind  string
	queue chan zledger.RewardEvent
}

var _ zledger.CrossChainNotifier = &ZMQNotifier{}

func NewZMQNotifier(bind string) *ZMQNotifier {
	return &ZMQNotifier{
		bind:  bind,
		queue: make(chan zledger.RewardEvent, 64),
	}
}

// Notify is fire-and-forget: it never blocks block processing.
func (n *ZMQNotifier) Notify(event zledger.RewardEvent) error {
	select {
	case n.queue <- event:
		return nil
	default:
		return zledger.NewErr(zledger.NotAvailable, "cross-chain queue full, dropped reward at height %d", event.Height)
	}
}

// Implements conductor.Service
func (n *ZMQNotifier) Run(started, stopped chan bool, stop chan context.Context) error {
	sock, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return err
	}
	if err := sock.Bind(n.bind); err != nil {
		sock.Close()
		return err
	}
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				sock.Close()
				stopped <- true
				return
			case event := <-n.queue:
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				// best-effort: send errors are dropped, the relay
				// reconciles from chain state on reconnect.
				sock.SendMessage(rewardTopic, payload)
			}
		}
	}()
	return nil
}
