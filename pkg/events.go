package zledger

// Ledger event types

// bus.Send(TX_ACCEPTED, tx)
// bus.Send(MINE_REWARD_PAID, event)

// Interface for any event
type EventType interface {
	Type() string
}

// slice of all msg types for config funcs lookup
var EVENT_TYPES []EventType = []EventType{EVENT_ALL("ALL"),
	EVENT_SYS("SYS"),
	EVENT_TX("TX"),
	EVENT_SHIELD("SHIELD"),
	EVENT_MINE("MINE"),
	EVENT_XCHAIN("XCHAIN")}

// Special category, do not use directly, represents *
type EVENT_ALL string

func (e EVENT_ALL) Type() string {
	return "ALL"
}

// System Events
type EVENT_SYS string

func (e EVENT_SYS) Type() string {
	return "SYS"
}

const (
	SYS_STARTUP EVENT_SYS = "STARTUP"
	SYS_ERR     EVENT_SYS = "ERR"
	SYS_MSG     EVENT_SYS = "MSG"
)

// Transparent transaction events
type EVENT_TX string

func (e EVENT_TX) Type() string {
	return "TX"
}

const (
	TX_ACCEPTED EVENT_TX = "ACCEPTED"
	TX_REJECTED EVENT_TX = "REJECTED"
)

// Shielded transaction events
type EVENT_SHIELD string

func (e EVENT_SHIELD) Type() string {
	return "SHIELD"
}

const (
	SHIELD_ACCEPTED EVENT_SHIELD = "ACCEPTED"
	SHIELD_REJECTED EVENT_SHIELD = "REJECTED"
)

// Mining events
type EVENT_MINE string

func (e EVENT_MINE) Type() string {
	return "MINE"
}

const (
	MINE_PROOF_ACCEPTED EVENT_MINE = "PROOF_ACCEPTED"
	MINE_PROOF_REJECTED EVENT_MINE = "PROOF_REJECTED"
	MINE_REWARD_PAID    EVENT_MINE = "REWARD_PAID"
	MINE_RETARGET       EVENT_MINE = "RETARGET"
)

// Cross-chain events, forwarded to the peer chain relay.
type EVENT_XCHAIN string

func (e EVENT_XCHAIN) Type() string {
	return "XCHAIN"
}

const (
	XCHAIN_REWARD EVENT_XCHAIN = "REWARD"
)
