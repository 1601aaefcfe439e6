package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ChainConfig struct {
	RPCURL          string        `env:"CHAIN_RPC_URL" envDefault:"http://localhost:8545"`
	Fake            bool          `env:"CHAIN_FAKE" envDefault:"false"`
	RequestTimeout  time.Duration `env:"CHAIN_REQUEST_TIMEOUT" envDefault:"10s"`
	ReceiptInterval time.Duration `env:"CHAIN_RECEIPT_INTERVAL" envDefault:"1s"`
	ConfirmTimeout  time.Duration `env:"CHAIN_CONFIRM_TIMEOUT" envDefault:"90s"`
	FeeHeadroomPct  uint64        `env:"CHAIN_FEE_HEADROOM_PCT" envDefault:"30"`
	FallbackGasFee  uint64        `env:"CHAIN_FALLBACK_GAS_FEE" envDefault:"1000"`

	OwnerAddress string `env:"OWNER_ADDRESS,required,notEmpty"`
	TableAddress string `env:"TABLE_ADDRESS,required,notEmpty"`
	VaultAddress string `env:"VAULT_ADDRESS,required,notEmpty"`
}

func LoadChain() (ChainConfig, error) {
	var cfg ChainConfig
	err := env.Parse(&cfg)
	return cfg, err
}
