package conf

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/reserve-vault/relaypay/go/mechanisms/evm"
)

// ChainConfig holds the RPC endpoint and contract addresses
type ChainConfig struct {
	RPCURL         string        `envconfig:"RPC_URL" json:"rpc_url"`
	ID             int64         `envconfig:"ID" default:"11155111" json:"id"`
	TokenAddress   string        `split_words:"true" json:"token_address"`
	ReserveAddress string        `split_words:"true" json:"reserve_address"`
	VaultAddress   string        `split_words:"true" json:"vault_address"`
	PollInterval   time.Duration `split_words:"true" default:"2s" json:"poll_interval"`
}

// Network returns the CAIP-2 identifier, e.g. "eip155:1"
func (c *ChainConfig) Network() string {
	return fmt.Sprintf("eip155:%d", c.ID)
}

// ChainID returns the chain id as a big.Int
func (c *ChainConfig) ChainID() *big.Int {
	return big.NewInt(c.ID)
}

// Contracts returns the configured contract set
func (c *ChainConfig) Contracts() evm.ContractSet {
	return evm.ContractSet{
		Token:   c.TokenAddress,
		Reserve: c.ReserveAddress,
		Vault:   c.VaultAddress,
	}
}

// WalletConfig holds the signing key
type WalletConfig struct {
	PrivateKey string `split_words:"true" json:"-"`
}

// RelayerConfig configures the relayer client and settle policy
type RelayerConfig struct {
	URL            string        `envconfig:"URL" default:"http://localhost:3000" json:"url"`
	APIKey         string        `envconfig:"API_KEY" json:"-"`
	Timeout        time.Duration `default:"30s" json:"timeout"`
	Fee            string        `default:"2" json:"fee"`
	SettleAttempts int           `split_words:"true" default:"3" json:"settle_attempts"`
	SettleDelay    time.Duration `split_words:"true" default:"1s" json:"settle_delay"`
}

// EventsConfig configures state event publishing
type EventsConfig struct {
	Enabled  bool   `default:"false" json:"enabled"`
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0" json:"redis_url"`
}

// StatusConfig configures the status HTTP server
type StatusConfig struct {
	Host string `default:"localhost" json:"host"`
	Port string `default:"8089" json:"port"`
}

// LoggingConfig configures logrus
type LoggingConfig struct {
	Level  string            `json:"log_level"`
	File   string            `json:"log_file"`
	Fields map[string]string `json:"fields"`
}

// GlobalConfiguration holds all configuration, read from RELAYPAY_* variables
type GlobalConfiguration struct {
	Chain   ChainConfig
	Wallet  WalletConfig
	Relayer RelayerConfig
	Events  EventsConfig
	Status  StatusConfig
	Logging LoggingConfig `envconfig:"LOG"`
}

// LoadGlobal loads configuration from file (a .env file) and the environment
func LoadGlobal(filename string) (*GlobalConfiguration, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, err
	}

	config := new(GlobalConfiguration)
	if err := envconfig.Process("relaypay", config); err != nil {
		return nil, err
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// handle if .env file does not exist, this is OK
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

// ApplyDefaults fills unset contract addresses from the per-chain table
func (c *GlobalConfiguration) ApplyDefaults() error {
	network, ok := evm.NetworkConfigs[c.Chain.Network()]
	if !ok {
		return nil
	}
	if c.Chain.TokenAddress == "" {
		c.Chain.TokenAddress = network.Contracts.Token
	}
	if c.Chain.ReserveAddress == "" {
		c.Chain.ReserveAddress = network.Contracts.Reserve
	}
	if c.Chain.VaultAddress == "" {
		c.Chain.VaultAddress = network.Contracts.Vault
	}
	return nil
}

// Validate checks the configuration is usable
func (c *GlobalConfiguration) Validate() error {
	if c.Chain.ID <= 0 {
		return errors.New("chain id must be positive")
	}
	for name, addr := range map[string]string{
		"token":   c.Chain.TokenAddress,
		"reserve": c.Chain.ReserveAddress,
		"vault":   c.Chain.VaultAddress,
	} {
		if addr == "" {
			return fmt.Errorf("no %s address configured for %s", name, c.Chain.Network())
		}
		if !evm.IsValidAddress(addr) {
			return fmt.Errorf("invalid %s address: %s", name, addr)
		}
	}
	if c.Relayer.Fee != "" {
		if _, err := evm.ParseDecimal(c.Relayer.Fee); err != nil {
			return fmt.Errorf("invalid relayer fee: %w", err)
		}
	}
	if c.Relayer.SettleAttempts < 1 {
		return errors.New("settle attempts must be at least 1")
	}
	if c.Relayer.SettleDelay < 0 {
		return errors.New("settle delay must not be negative")
	}
	return nil
}
