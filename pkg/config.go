package zledger

import (
	"github.com/jinzhu/configor"
)

type Config struct {
	Chain struct {
		// Consensus parameters. These must match every other node on
		// the network; changing them is a hard fork.
		EpochLength         int64  `default:"2016"`
		TargetBlockTimeMS   int64  `default:"500"`
		InitialSubsidy      string `default:"50000000000000000"`
		HalvingInterval     int64  `default:"210000000"`
		GenesisBits         uint32 `default:"0x1f07ffff"`
		EquihashN           uint32 `default:"144"`
		EquihashK           uint32 `default:"5"`
	}

	Mining struct {
		// HardwareBonus is policy data, not consensus: per rig-class
		// bonus amounts in base units. Unknown classes mine at base rate.
		HardwareBonus map[string]string
	}

	Store struct {
		DBFile string `default:"zledger.db"`
	}

	WebAPI struct {
		Bind string `default:"localhost"`
		Port string `default:"8099"`
	}

	Notifier struct {
		// ZMQ PUB endpoint the peer-chain relay subscribes to.
		Bind string `default:"tcp://127.0.0.1:28433"`
	}

	EventLog struct {
		Filename string `default:"./events.log"`
	}
}

func LoadConfig(confPath string) Config {
	c := Config{}
	configor.Load(&c, confPath)
	if c.Mining.HardwareBonus == nil {
		c.Mining.HardwareBonus = DefaultHardwareBonus
	}
	return c
}

// DefaultHardwareBonus rewards GPU rigs over suspected ASICs: the
// allow-list incentive half of the puzzle's ASIC resistance. Values
// are base units.
var DefaultHardwareBonus = map[string]string{
	"nvidia-rtx-3080": "2000000000000000",
	"nvidia-rtx-3090": "3000000000000000",
	"nvidia-rtx-4080": "4000000000000000",
	"nvidia-rtx-4090": "5000000000000000",
	"amd-rx-6800-xt":  "2500000000000000",
	"amd-rx-6900-xt":  "3500000000000000",
	"amd-rx-7800-xt":  "4500000000000000",
	"amd-rx-7900-xtx": "5500000000000000",
}
