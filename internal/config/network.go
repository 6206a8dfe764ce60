// Package config also contains chain-specific configuration surfaces.
package config

// Environment variables that override file values.
const (
	EnvHorizonURL         = "GOVDASH_HORIZON_URL"
	EnvRPCURL             = "GOVDASH_RPC_URL"
	EnvNetworkPassphrase  = "GOVDASH_NETWORK_PASSPHRASE"
	EnvGovernanceContract = "GOVDASH_GOVERNANCE_CONTRACT"
	EnvXAssetContract     = "GOVDASH_XASSET_CONTRACT"
	EnvWalletAddress      = "GOVDASH_WALLET_ADDRESS"
	EnvLogLevel           = "GOVDASH_LOG_LEVEL"
	// EnvSecretKey is read by the wallet package only; it never lands in the YAML file.
	EnvSecretKey = "STELLAR_SECRET_KEY"
)

// Network defines Stellar endpoints used for account lookups and contract calls.
type Network struct {
	HorizonURL string            `yaml:"horizon_url"` // https://horizon-testnet.stellar.org
	RPCURL     string            `yaml:"rpc_url"`     // https://soroban-testnet.stellar.org
	Passphrase string            `yaml:"passphrase"`  // Test SDF Network ; September 2015
	Headers    map[string]string `yaml:"headers"`
	// PollInterval controls getTransaction polling after submission.
	PollInterval int `yaml:"poll_interval_ms"`
	// SequenceStaleTime is how long a cached sequence lookup is reused.
	SequenceStaleTime int `yaml:"sequence_stale_ms"`
}

// Contracts lists the deployed contract ids the dashboard talks to.
type Contracts struct {
	Governance string `yaml:"governance"`
	XAsset     string `yaml:"xasset"`
}

// Wallet stores which account signs governance transactions. The secret itself comes from
// STELLAR_SECRET_KEY; Address alone yields a watch-only wallet.
type Wallet struct {
	Address string `yaml:"address"`
}
