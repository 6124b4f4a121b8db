package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"ppn/logx"
)

// Defaults applied when config.ini omits a key.
const (
	DefaultNodeID      = "ppn-node"
	DefaultListenAddr  = ":9101"
	DefaultMetricsAddr = ":9102"
	DefaultDatabase    = "leveldb"
	DefaultDataDir     = "."
)

// LoadGenesisConfig reads and parses the genesis.yml file
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded genesis config with %d allocs", len(cfgFile.Config.Allocs)))
	return &cfgFile.Config, nil
}

// LoadNodeConfig reads the node section from an .ini file
func LoadNodeConfig(path string) (*NodeConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	nodeCfg := &NodeConfig{
		NodeID:      DefaultNodeID,
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		DataDir:     DefaultDataDir,
		Database:    DefaultDatabase,
	}
	if err := cfg.Section("node").MapTo(nodeCfg); err != nil {
		return nil, err
	}
	return nodeCfg, nil
}

// LoadLedgerConfig reads the ledger section from an .ini file
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	ledgerCfg := &LedgerConfig{}
	if err := cfg.Section("ledger").MapTo(ledgerCfg); err != nil {
		return nil, err
	}
	return ledgerCfg, nil
}

// LoadEd25519PrivKey loads an Ed25519 private key from a file. The file
// holds either a 32-byte seed or a full 64-byte key, hex encoded.
func LoadEd25519PrivKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}
	switch len(key) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	}
	return nil, fmt.Errorf("private key in %s must be %d or %d bytes, got %d",
		path, ed25519.SeedSize, ed25519.PrivateKeySize, len(key))
}
