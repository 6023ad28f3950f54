package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ApprovalPolicy controls how much allowance an approval transaction grants
type ApprovalPolicy string

const (
	// ApproveMax grants the maximum representable amount: one approval
	// covers all future swaps through the same spender, at the cost of a
	// wider authorization if that spender is ever compromised
	ApproveMax ApprovalPolicy = "max"
	// ApproveExact grants only the amount the current swap needs
	ApproveExact ApprovalPolicy = "exact"
)

// EVMConfig holds the Ethereum-side settings
type EVMConfig struct {
	RPCUrl          string
	ChainID         int64
	V3Factory       string // Uniswap V3 factory contract
	V3Quoter        string // QuoterV2 contract
	V3Router        string // SwapRouter02 contract
	V2Router        string // constant-product fallback router
	AggregatorURL   string // 1inch-style aggregator base URL
	AggregatorKey   string // aggregator API key; the aggregator venue is skipped without one
	FeeTiers        []uint32
	ApprovalPolicy  ApprovalPolicy
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration
}

// SolanaConfig holds the Solana-side settings
type SolanaConfig struct {
	RPCUrl        string
	AggregatorURL string // Jupiter-style aggregator base URL
	Commitment    string
}

// Config holds the application configuration
type Config struct {
	EVM         EVMConfig
	Solana      SolanaConfig
	WalletFile  string
	HistoryFile string
	SlippageBps int
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".pocketdex")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values (Ethereum mainnet contracts)
	viper.SetDefault("evm.chain_id", 1)
	viper.SetDefault("evm.v3_factory", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	viper.SetDefault("evm.v3_quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	viper.SetDefault("evm.v3_router", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	viper.SetDefault("evm.v2_router", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	viper.SetDefault("evm.aggregator_url", "https://api.1inch.dev/swap/v6.0")
	viper.SetDefault("evm.fee_tiers", []uint32{500, 3000, 10000})
	viper.SetDefault("evm.approval_policy", string(ApproveMax))
	viper.SetDefault("evm.confirm_timeout_seconds", 180)
	viper.SetDefault("evm.confirm_interval_seconds", 3)
	viper.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	viper.SetDefault("solana.aggregator_url", "https://quote-api.jup.ag/v6")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("slippage_bps", 100)

	// Read from environment variables
	viper.SetEnvPrefix("POCKETDEX")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	viper.SetDefault("wallet_file", home+"/.pocketdex-wallet.json")
	viper.SetDefault("history_file", home+"/.pocketdex-history.json")

	policy := ApprovalPolicy(viper.GetString("evm.approval_policy"))
	if policy != ApproveMax && policy != ApproveExact {
		return nil, fmt.Errorf("approval policy must be 'max' or 'exact', got %q", policy)
	}

	feeTiers := make([]uint32, 0, 3)
	for _, t := range viper.GetIntSlice("evm.fee_tiers") {
		feeTiers = append(feeTiers, uint32(t))
	}

	cfg := &Config{
		EVM: EVMConfig{
			RPCUrl:          viper.GetString("evm.rpc_url"),
			ChainID:         viper.GetInt64("evm.chain_id"),
			V3Factory:       viper.GetString("evm.v3_factory"),
			V3Quoter:        viper.GetString("evm.v3_quoter"),
			V3Router:        viper.GetString("evm.v3_router"),
			V2Router:        viper.GetString("evm.v2_router"),
			AggregatorURL:   viper.GetString("evm.aggregator_url"),
			AggregatorKey:   viper.GetString("evm.aggregator_key"),
			FeeTiers:        feeTiers,
			ApprovalPolicy:  policy,
			ConfirmTimeout:  time.Duration(viper.GetInt("evm.confirm_timeout_seconds")) * time.Second,
			ConfirmInterval: time.Duration(viper.GetInt("evm.confirm_interval_seconds")) * time.Second,
		},
		Solana: SolanaConfig{
			RPCUrl:        viper.GetString("solana.rpc_url"),
			AggregatorURL: viper.GetString("solana.aggregator_url"),
			Commitment:    viper.GetString("solana.commitment"),
		},
		WalletFile:  viper.GetString("wallet_file"),
		HistoryFile: viper.GetString("history_file"),
		SlippageBps: viper.GetInt("slippage_bps"),
	}

	if cfg.EVM.RPCUrl == "" {
		return nil, fmt.Errorf("EVM RPC URL not found. Please set POCKETDEX_EVM.RPC_URL or add evm.rpc_url to a .pocketdex.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
