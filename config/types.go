package config

// NodeConfig holds the [node] section of config.ini
type NodeConfig struct {
	NodeID      string `ini:"node_id"`
	ListenAddr  string `ini:"listen_addr"`
	MetricsAddr string `ini:"metrics_addr"`
	DataDir     string `ini:"data_dir"`
	Database    string `ini:"database"`
	DatabaseURL string `ini:"database_url"`
	PrivKeyPath string `ini:"privkey_path"`

	// RPCRateLimit caps requests per second per client IP. Zero turns
	// the limiter off.
	RPCRateLimit int `ini:"rpc_rate_limit"`
}

// LedgerConfig holds the [ledger] section of config.ini. Zero values mean
// "use the built-in params".
type LedgerConfig struct {
	BaseReserve uint64 `ini:"base_reserve"`
	RentPerByte uint64 `ini:"rent_per_byte"`
}

// Alloc seeds one account at genesis. Amount is in base units.
type Alloc struct {
	Address string `yaml:"address"`
	Amount  uint64 `yaml:"amount"`
}

// GenesisConfig holds the configuration from genesis.yml
type GenesisConfig struct {
	Allocs []Alloc `yaml:"allocs"`
}

// ConfigFile is the top-level structure for genesis.yml
type ConfigFile struct {
	Config GenesisConfig `yaml:"config"`
}
