package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"swapledger/config"
	"swapledger/core/events"
	"swapledger/native/common"
	"swapledger/native/swap"
	"swapledger/native/token"
	"swapledger/observability/logging"
	"swapledger/rpc"
	"swapledger/state"
	"swapledger/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to swapd configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SWAPD_ENV"))
	logger := logging.Setup("swapd", env)

	if strings.TrimSpace(cfgPath) == "" {
		logger.Error("missing -config flag")
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if env == "" && strings.TrimSpace(cfg.Environment) != "" {
		logger = logging.Setup("swapd", cfg.Environment)
	}

	var db storage.Database
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		logger.Warn("no database path configured, using in-memory store")
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DatabasePath)
		if err != nil {
			logger.Error("open database", "path", cfg.DatabasePath, "error", err)
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	ledger := swap.NewLedger(manager)
	custody := swap.NewCustody(manager, cfg.Vault.Bytes)
	for _, tc := range cfg.Tokens {
		tok, err := token.NewLedger(tc.Symbol, manager)
		if err != nil {
			logger.Error("register token", "symbol", tc.Symbol, "error", err)
			os.Exit(1)
		}
		custody.RegisterToken(tok.Symbol(), tok)
	}

	owner, err := common.NewOwner(cfg.Owner.Bytes)
	if err != nil {
		logger.Error("configure owner", "error", err)
		os.Exit(1)
	}

	engine := swap.NewEngine(manager, ledger, custody, owner)
	engine.SetEmitter(events.NewLogEmitter(logger))

	if err := ledger.Initialize(swap.LedgerConfig{
		Treasury:  cfg.Treasury.Bytes,
		FeePolicy: feePolicy(cfg.Fee.Policy),
		FeeRate:   cfg.Fee.Rate,
	}); err != nil {
		logger.Error("initialize ledger", "error", err)
		os.Exit(1)
	}
	if err := manager.Commit(); err != nil {
		logger.Error("persist ledger config", "error", err)
		os.Exit(1)
	}

	server := rpc.New(engine, manager, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("swapd listening", "address", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}

	if err := manager.Commit(); err != nil {
		logger.Error("final commit failed", "error", err)
		os.Exit(1)
	}
}

func feePolicy(name string) swap.FeePolicy {
	if strings.EqualFold(strings.TrimSpace(name), "dual_percent") {
		return swap.FeePolicyDualPercent
	}
	return swap.FeePolicyFlatBps
}
