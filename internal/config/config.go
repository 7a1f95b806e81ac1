package config

import (
	"fmt"
	"os"
	"strconv"

	"propeller/offchain/internal/models"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Env      models.Env
	Chains   map[models.Ecosystem]EVMChainConfig
	Solana   SolanaConfig
	Wormhole WormholeConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// EVMChainConfig holds configuration for one EVM ecosystem
type EVMChainConfig struct {
	Ecosystem          models.Ecosystem
	Name               string
	ChainID            string // EVM numeric chain id, e.g. "1"
	RPCEndpoint        string
	CoreBridgeAddress  string // wormhole core bridge contract
	TokenBridgeAddress string // wormhole token bridge contract
	PrivateKey         string // relayer key for claim transactions
}

// SolanaConfig holds Solana-side configuration
type SolanaConfig struct {
	RPCEndpoint        string
	PoolProgramID      string // Propeller pool program
	CoreBridgeAddress  string
	TokenBridgeAddress string
	PrivateKey         string // relayer key, base58
}

// WormholeConfig holds guardian attestation configuration
type WormholeConfig struct {
	GuardianRPCEndpoint string
	// RetryBudget is the maximum number of attestation polls per ecosystem;
	// VAA availability latency differs per chain finality.
	RetryBudget map[models.Ecosystem]int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "propeller_offchain"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Env:    models.Env(getEnv("PROPELLER_ENV", string(models.EnvMainnet))),
		Chains: make(map[models.Ecosystem]EVMChainConfig),
		Solana: SolanaConfig{
			RPCEndpoint:        getEnv("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
			PoolProgramID:      getEnv("SOLANA_POOL_PROGRAM_ID", ""),
			CoreBridgeAddress:  getEnv("SOLANA_CORE_BRIDGE", "worm2ZoG2kUd4vFXhvjh93UUH596ayRfgQ2MgjNMTth"),
			TokenBridgeAddress: getEnv("SOLANA_TOKEN_BRIDGE", "wormDTUJ6AWPNvk59vGQbDvGJmqbDTdgWgAqcLBCgUb"),
			PrivateKey:         getEnv("SOLANA_PRIVATE_KEY", ""),
		},
		Wormhole: WormholeConfig{
			GuardianRPCEndpoint: getEnv("WORMHOLE_GUARDIAN_RPC", "https://api.wormholescan.io"),
			RetryBudget: map[models.Ecosystem]int{
				models.EcosystemSolana:    getEnvInt("WORMHOLE_RETRIES_SOLANA", 60),
				models.EcosystemEthereum:  getEnvInt("WORMHOLE_RETRIES_ETHEREUM", 120),
				models.EcosystemBsc:       getEnvInt("WORMHOLE_RETRIES_BSC", 60),
				models.EcosystemAvalanche: getEnvInt("WORMHOLE_RETRIES_AVALANCHE", 60),
				models.EcosystemPolygon:   getEnvInt("WORMHOLE_RETRIES_POLYGON", 120),
			},
		},
	}

	loadEVMChainConfigs(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadEVMChainConfigs loads configuration for all EVM ecosystems that have an
// RPC endpoint set
func loadEVMChainConfigs(cfg *Config) {
	type chainDefaults struct {
		ecosystem   models.Ecosystem
		name        string
		chainID     string
		envPrefix   string
		coreBridge  string
		tokenBridge string
	}

	chains := []chainDefaults{
		{models.EcosystemEthereum, "Ethereum", "1", "ETH",
			"0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B",
			"0x3ee18B2214AFF97000D974cf647E7C347E8fa585"},
		{models.EcosystemBsc, "BNB Chain", "56", "BSC",
			"0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B",
			"0xB6F6D86a8f9879A9c87f643768d9efc38c1Da6E7"},
		{models.EcosystemAvalanche, "Avalanche", "43114", "AVAX",
			"0x54a8e5f9c4CbA08F9943965859F6c34eAF03E26c",
			"0x0e082F06FF657D94310cB8cE8B0D9a04541d8052"},
		{models.EcosystemPolygon, "Polygon", "137", "POLYGON",
			"0x7A4B5a56256163F07b2C80A7cA55aBE66c4ec4d7",
			"0x5a58505a96D1dbf8dF91cB21B54419FC36e93fdE"},
	}

	for _, c := range chains {
		rpc := getEnv(c.envPrefix+"_RPC_ENDPOINT", "")
		if rpc == "" {
			continue
		}
		cfg.Chains[c.ecosystem] = EVMChainConfig{
			Ecosystem:          c.ecosystem,
			Name:               c.name,
			ChainID:            c.chainID,
			RPCEndpoint:        rpc,
			CoreBridgeAddress:  getEnv(c.envPrefix+"_CORE_BRIDGE", c.coreBridge),
			TokenBridgeAddress: getEnv(c.envPrefix+"_TOKEN_BRIDGE", c.tokenBridge),
			PrivateKey:         getEnv(c.envPrefix+"_PRIVATE_KEY", getEnv("EVM_PRIVATE_KEY", "")),
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	switch c.Env {
	case models.EnvMainnet, models.EnvTestnet, models.EnvLocalnet:
	default:
		return fmt.Errorf("unknown environment %q", c.Env)
	}

	if c.Solana.RPCEndpoint == "" {
		return fmt.Errorf("solana RPC endpoint is required")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
