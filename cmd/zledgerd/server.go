package main

import (
	"github.com/tjstebbing/conductor"

	zledger "github.com/zchainfoundation/zledger/pkg"
	"github.com/zchainfoundation/zledger/pkg/bank"
	"github.com/zchainfoundation/zledger/pkg/notify"
	"github.com/zchainfoundation/zledger/pkg/store"
	"github.com/zchainfoundation/zledger/pkg/webapi"
	"github.com/zchainfoundation/zledger/pkg/zkp"
)

func Server(conf zledger.Config) {

	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
	)

	// Start the MessageBus Service
	bus := zledger.NewMessageBus()
	c.Service("MessageBus", bus)

	// Event log receiver gets everything
	logger := notify.NewEventLogger(conf.EventLog.Filename)
	bus.Register(logger, zledger.EVENT_ALL("ALL"))
	c.Service("Event Log", logger)

	// Setup a Store
	db, err := store.NewSQLiteStore(conf.Store.DBFile)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	// Proof verifier for the shielded pool. Setup generates local
	// keys; a real network loads the published ceremony output.
	verifier, err := zkp.Setup()
	if err != nil {
		panic(err)
	}

	// Cross-chain ZMQ publisher (reward relay to the peer chain)
	notifier := notify.NewZMQNotifier(conf.Notifier.Bind)
	c.Service("XChain Notifier", notifier)

	api, err := zledger.NewAPI(db, verifier, bank.NewUTXOBank(db), notifier, bus, conf)
	if err != nil {
		panic(err)
	}

	// Start the Ledger API
	p, err := webapi.NewWebAPI(conf, api)
	if err != nil {
		panic(err)
	}
	c.Service("Ledger API", p)

	bus.Send(zledger.SYS_STARTUP, struct {
		Msg string `json:"msg"`
	}{Msg: "zledgerd starting"})

	<-c.Start()
}
