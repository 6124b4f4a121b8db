package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ppn/bank"
	"ppn/config"
	"ppn/db"
	"ppn/events"
	"ppn/exception"
	"ppn/jsonrpc"
	"ppn/ledger"
	"ppn/logx"
	"ppn/monitoring"
	"ppn/payment"
	"ppn/ratelimit"
	"ppn/service"
	"ppn/store"

	"github.com/spf13/cobra"
)

var nodeConfigPath string

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the payment node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode(nodeConfigPath)
	},
}

func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.Flags().StringVarP(&nodeConfigPath, "config", "c", "config/config.ini", "Path to node configuration file")
}

func runNode(configPath string) {
	initializeFileLogger()
	monitoring.InitMetrics()

	// Load configuration
	cfg, ledgerCfg, err := loadNodeSettings(configPath)
	if err != nil {
		logx.Error("NODE", "Failed to load configuration:", err.Error())
		os.Exit(1)
	}
	logx.Info("NODE", fmt.Sprintf("Starting %s (listen=%s metrics=%s database=%s)",
		cfg.NodeID, cfg.ListenAddr, cfg.MetricsAddr, cfg.Database))

	// Open the database and build the stores over it
	provider, err := openConfiguredStore(cfg)
	if err != nil {
		logx.Error("NODE", "Failed to open database:", err.Error())
		os.Exit(1)
	}
	defer provider.Close()

	accounts, records, states, err := store.CreateStores(provider)
	if err != nil {
		logx.Error("NODE", "Failed to initialize stores:", err.Error())
		os.Exit(1)
	}

	// Assemble the ledger core
	eventRouter := events.NewEventRouter(events.NewEventBus())
	bk := bank.NewBank(provider, accounts, records, states, ledgerParams(ledgerCfg), bank.SystemClock{})
	ld := ledger.NewLedger(bk, eventRouter)

	state, created, err := ld.InitializeState()
	if err != nil {
		logx.Error("NODE", "Failed to initialize program state:", err.Error())
		os.Exit(1)
	}
	if created {
		logx.Info("NODE", "Program state created on first start")
	}
	logx.Info("NODE", fmt.Sprintf("Ledger at sequence %d", state.TotalTransactions))

	// Fund genesis accounts placed by init. Accounts that already exist
	// keep their balance, so rerunning this on every start is safe.
	if err := applyGenesisAllocations(bk, filepath.Join(cfg.DataDir, "genesis.yml")); err != nil {
		logx.Error("NODE", "Failed to apply genesis allocations:", err.Error())
		os.Exit(1)
	}

	// Wire services
	tracker := payment.NewPaymentTracker()
	paymentSvc := service.NewPaymentService(ld, tracker, eventRouter)
	ledgerSvc := service.NewLedgerService(ld)
	accountSvc := service.NewAccountService(ld)
	healthSvc := service.NewHealthService(ld, tracker, cfg.NodeID)

	// JSON-RPC endpoint
	rpcServer := jsonrpc.NewServer(cfg.ListenAddr, paymentSvc, ledgerSvc, accountSvc, healthSvc)
	if corsCfg, ok := jsonrpc.CORSFromEnv(); ok {
		rpcServer.SetCORSConfig(corsCfg)
	}
	if cfg.RPCRateLimit > 0 {
		rpcServer.SetRateLimiter(ratelimit.NewLimiter(ratelimit.Config{
			MaxRequests: cfg.RPCRateLimit,
			Window:      time.Second,
		}))
		logx.Info("NODE", fmt.Sprintf("RPC rate limit: %d requests/s per client", cfg.RPCRateLimit))
	}
	rpcServer.Start()
	logx.Info("NODE", "JSON-RPC server listening on", cfg.ListenAddr)

	// Metrics endpoint on its own listener
	startMetricsServer(cfg.MetricsAddr)

	// Block forever
	select {}
}

// loadNodeSettings loads the node and ledger sections of the config file.
// openConfiguredStore opens the database named by the node configuration.
func openConfiguredStore(cfg *config.NodeConfig) (db.IterableProvider, error) {
	return store.CreateProvider(&store.StoreConfig{
		Type:        store.StoreType(cfg.Database),
		Directory:   filepath.Join(cfg.DataDir, "store"),
		DatabaseURL: cfg.DatabaseURL,
	})
}

func loadNodeSettings(configPath string) (*config.NodeConfig, *config.LedgerConfig, error) {
	cfg, err := config.LoadNodeConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load node config: %w", err)
	}
	ledgerCfg, err := config.LoadLedgerConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load ledger config: %w", err)
	}
	return cfg, ledgerCfg, nil
}

// ledgerParams maps the [ledger] config section onto bank parameters.
// Zero values keep the built-in defaults.
func ledgerParams(ledgerCfg *config.LedgerConfig) bank.Params {
	params := bank.DefaultParams()
	if ledgerCfg == nil {
		return params
	}
	if ledgerCfg.BaseReserve != 0 {
		params.BaseReserve = ledgerCfg.BaseReserve
	}
	if ledgerCfg.RentPerByte != 0 {
		params.RentPerByte = ledgerCfg.RentPerByte
	}
	return params
}

// applyGenesisAllocations funds the accounts listed in the genesis file.
// A node whose data directory has no genesis file starts with an empty
// ledger; that is not an error.
func applyGenesisAllocations(bk *bank.Bank, genesisPath string) error {
	gen, err := config.LoadGenesisConfig(genesisPath)
	if err != nil {
		if os.IsNotExist(err) {
			logx.Warn("NODE", "No genesis file at", genesisPath)
			return nil
		}
		return err
	}
	return bk.ApplyGenesis(bankAllocs(gen.Allocs))
}

func bankAllocs(allocs []config.Alloc) []bank.Alloc {
	out := make([]bank.Alloc, 0, len(allocs))
	for _, alloc := range allocs {
		out = append(out, bank.Alloc{Address: alloc.Address, Amount: alloc.Amount})
	}
	return out
}

// startMetricsServer exposes the prometheus registry on its own address so
// operational scrapes never share a listener with payment traffic.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	exception.SafeGo("metrics-server", func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logx.Error("NODE", "Metrics server stopped:", err.Error())
		}
	})
	logx.Info("NODE", "Metrics server listening on", addr)
}
