package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"ppn/bank"
	"ppn/config"
	"ppn/ledger"
	"ppn/logx"
	"ppn/monitoring"
	"ppn/store"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spf13/cobra"
)

var (
	// Init command specific variables
	initGenesisPath string
	initDataDir     string
	initDatabase    string
	initDatabaseURL string
	initPrivKeyPath string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize node by generating a private key and seeding the ledger",
	Long: `Initialize a new payment node by:
- Generating a new Ed25519 private key (or using a provided one)
- Creating the program state so sequence numbers start at zero
- Funding the genesis accounts from the allocation file
- Setting up the data directory structure`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeNode()
	},
}

func init() {
	// Add init command to root
	rootCmd.AddCommand(initCmd)

	// Init command flags
	initCmd.Flags().StringVar(&initGenesisPath, "genesis", "config/genesis.yml", "Path to genesis allocation file")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", config.DefaultDataDir, "Directory to save node data")
	initCmd.Flags().StringVar(&initDatabase, "database", config.DefaultDatabase, "Database backend (leveldb, bolt, postgres or memory)")
	initCmd.Flags().StringVar(&initDatabaseURL, "database-url", "", "Connection string for the postgres backend")
	initCmd.Flags().StringVar(&initPrivKeyPath, "privkey-path", "", "Path to existing private key file (optional)")
}

// initializeNode generates a new Ed25519 seed, creates the program state,
// and funds the genesis accounts.
// This method is idempotent and safe to run multiple time
func initializeNode() {
	initializeFileLogger()
	monitoring.InitMetrics()

	// Ensure data directory exists
	if err := os.MkdirAll(initDataDir, 0o755); err != nil {
		logx.Error("INIT", "Failed to create data directory:", err.Error())
		return
	}

	// Create full paths for key files
	privKeyFile := filepath.Join(initDataDir, "privkey.txt")
	pubKeyFile := filepath.Join(initDataDir, "pubkey.txt")

	if initPrivKeyPath != "" {
		// Use provided private key file
		logx.Info("INIT", "Using provided private key from:", initPrivKeyPath)
		if err := importKeyPair(initPrivKeyPath, privKeyFile, pubKeyFile); err != nil {
			logx.Error("INIT", "Failed to import private key:", err.Error())
			return
		}
	} else if fileExists(privKeyFile) && fileExists(pubKeyFile) {
		logx.Info("INIT", "Private and public key files already exist, skipping key generation")
		if _, err := config.LoadEd25519PrivKey(privKeyFile); err != nil {
			logx.Error("INIT", "Failed to load existing private key:", err.Error())
			return
		}
	} else {
		logx.Info("INIT", "Generating new Ed25519 key pair")
		if err := generateKeyPair(privKeyFile, pubKeyFile); err != nil {
			logx.Error("INIT", "Failed to generate key pair:", err.Error())
			return
		}
		logx.Info("INIT", "Private key saved to:", privKeyFile)
		logx.Info("INIT", "Public key saved to:", pubKeyFile)
	}

	// Load genesis allocations
	gen, err := config.LoadGenesisConfig(initGenesisPath)
	if err != nil {
		logx.Error("INIT", "Failed to load genesis configuration:", err.Error())
		return
	}

	// Copy genesis.yml into the data directory so a later node start rereads
	// the exact allocations this init used.
	genesisDestPath := filepath.Join(initDataDir, "genesis.yml")
	if genesisDestPath != initGenesisPath {
		genesisData, err := os.ReadFile(initGenesisPath)
		if err != nil {
			logx.Error("INIT", "Failed to read genesis configuration file:", err.Error())
			return
		}
		if err := os.WriteFile(genesisDestPath, genesisData, 0o644); err != nil {
			logx.Error("INIT", "Failed to copy genesis configuration to data directory:", err.Error())
			return
		}
		logx.Info("INIT", "Genesis configuration copied to:", genesisDestPath)
	}

	// Open the store inside the data directory
	provider, err := store.CreateProvider(&store.StoreConfig{
		Type:        store.StoreType(initDatabase),
		Directory:   filepath.Join(initDataDir, "store"),
		DatabaseURL: initDatabaseURL,
	})
	if err != nil {
		logx.Error("INIT", "Failed to open database:", err.Error())
		return
	}
	defer provider.Close()

	accounts, records, states, err := store.CreateStores(provider)
	if err != nil {
		logx.Error("INIT", "Failed to initialize stores:", err.Error())
		return
	}

	bk := bank.NewBank(provider, accounts, records, states, bank.DefaultParams(), bank.SystemClock{})
	ld := ledger.NewLedger(bk, nil)

	// Check if the program state already exists then skip seeding
	_, created, err := ld.InitializeState()
	if err != nil {
		logx.Error("INIT", "Failed to initialize program state:", err.Error())
		return
	}
	if !created {
		logx.Info("INIT", "Program state already exists, skipping genesis allocation")
		return
	}

	if err := bk.ApplyGenesis(bankAllocs(gen.Allocs)); err != nil {
		logx.Error("INIT", "Failed to fund genesis accounts:", err.Error())
		return
	}

	logx.Info("INIT", "Seeded ledger with", fmt.Sprintf("%d genesis accounts", len(gen.Allocs)))
	logx.Info("INIT", "Node initialization completed successfully")
	logx.Info("INIT", "Private key saved to:", privKeyFile)
	logx.Info("INIT", "Data directory:", initDataDir)
	logx.Info("INIT", "Database backend:", initDatabase)
	logx.Info("INIT", "Genesis configuration loaded from:", initGenesisPath)
}

// importKeyPair copies an existing private key into the data directory and
// derives its public key file.
func importKeyPair(srcPath, privKeyFile, pubKeyFile string) error {
	privKey, err := config.LoadEd25519PrivKey(srcPath)
	if err != nil {
		return fmt.Errorf("load private key: %w", err)
	}

	privKeyData, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read private key file: %w", err)
	}
	if err := os.WriteFile(privKeyFile, privKeyData, 0o600); err != nil {
		return fmt.Errorf("copy private key to data directory: %w", err)
	}

	pubKeyHex := hex.EncodeToString(privKey.Public().(ed25519.PublicKey))
	if err := os.WriteFile(pubKeyFile, []byte(pubKeyHex), 0o644); err != nil {
		return fmt.Errorf("write public key file: %w", err)
	}

	logx.Info("INIT", "Private key copied to:", privKeyFile)
	logx.Info("INIT", "Public key saved to:", pubKeyFile)
	return nil
}

// generateKeyPair writes a fresh Ed25519 seed and its public key. The seed
// is stored hex encoded, owner readable only.
func generateKeyPair(privKeyFile, pubKeyFile string) error {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("generate Ed25519 seed: %w", err)
	}

	privKey := ed25519.NewKeyFromSeed(seed)
	pubKey := privKey.Public().(ed25519.PublicKey)

	if err := os.WriteFile(privKeyFile, []byte(hex.EncodeToString(seed)), 0o600); err != nil {
		return fmt.Errorf("write private key file: %w", err)
	}
	if err := os.WriteFile(pubKeyFile, []byte(hex.EncodeToString(pubKey)), 0o644); err != nil {
		return fmt.Errorf("write public key file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// initializeFileLogger routes log output through a size and age bounded
// rolling file. The knobs come from the environment; absent knobs fall
// back to defaults instead of failing startup.
func initializeFileLogger() {
	logFile := "./logs/ppn.log"
	if logFileConfig := os.Getenv("LOGFILE"); logFileConfig != "" {
		logFile = "./logs/" + logFileConfig
	}

	maxSizeMB := 100
	if maxSizeConfig := os.Getenv("LOGFILE_MAX_SIZE_MB"); maxSizeConfig != "" {
		parsed, err := strconv.Atoi(maxSizeConfig)
		if err != nil {
			logx.Warn("INIT", "Invalid LOGFILE_MAX_SIZE_MB, using default:", err.Error())
		} else {
			maxSizeMB = parsed
		}
	}

	maxAgeDays := 28
	if maxAgeConfig := os.Getenv("LOGFILE_MAX_AGE_DAYS"); maxAgeConfig != "" {
		parsed, err := strconv.Atoi(maxAgeConfig)
		if err != nil {
			logx.Warn("INIT", "Invalid LOGFILE_MAX_AGE_DAYS, using default:", err.Error())
		} else {
			maxAgeDays = parsed
		}
	}

	lumberjackLogger := &lumberjack.Logger{
		Filename: logFile,
		MaxSize:  maxSizeMB,
		MaxAge:   maxAgeDays,
	}

	logx.InitWithOutput(lumberjackLogger)
}
