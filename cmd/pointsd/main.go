package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alphapoints/config"
	"alphapoints/core"
	"alphapoints/core/epoch"
	"alphapoints/core/state"
	"alphapoints/observability"
	"alphapoints/observability/logging"
	"alphapoints/rpc"
	"alphapoints/storage"
)

const envVar = "POINTS_ENV"

// genesisCapabilities is written to the data directory exactly once, on first
// boot. The encodings are bearer secrets: the node itself only keeps proof
// hashes, so losing this file means losing admin control.
type genesisCapabilities struct {
	Governance string `json:"governance"`
	Oracle     string `json:"oracle"`
}

func main() {
	configFile := flag.String("config", "./points.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("pointsd", env)

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	node, err := core.NewNode(state.NewManager(db), epoch.Config{Seconds: cfg.EpochSeconds})
	if err != nil {
		logger.Error("Failed to construct node", slog.Any("error", err))
		os.Exit(1)
	}
	node.SetDailyWalletCap(cfg.DailyWalletCap)
	node.SetEmitter(observability.LogEmitter{Logger: logger})

	if !node.Seeded() {
		path, err := seedGenesis(node, cfg.DataDir)
		if err != nil {
			logger.Error("Failed to seed genesis capabilities", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Seeded genesis capabilities", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddress != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("Serving metrics", "addr", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				logger.Error("Metrics server stopped", slog.Any("error", err))
			}
		}()
	}

	// The redeem-rate ratchet is lazy: mints trigger it, but a mint-free
	// epoch boundary still needs a recompute so the measurement window
	// closes on time.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := node.RecomputeSupply(); err != nil {
					logger.Error("Supply recompute failed", slog.Any("error", err))
				}
			}
		}
	}()

	server := rpc.NewServer(node)
	logger.Info("Starting JSON-RPC server", "addr", cfg.RPCAddress)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "memory":
		return storage.NewMemDB(), nil
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "points.db"))
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// seedGenesis mints the admin capabilities and writes their encodings next to
// the data directory, readable by the operator only.
func seedGenesis(node *core.Node, dataDir string) (string, error) {
	var govOwner, oracleOwner [20]byte
	if _, err := rand.Read(govOwner[:]); err != nil {
		return "", err
	}
	if _, err := rand.Read(oracleOwner[:]); err != nil {
		return "", err
	}
	govToken, oracleToken, err := node.SeedGenesis(govOwner, oracleOwner)
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(dataDir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "capabilities.json")
	data, err := json.MarshalIndent(genesisCapabilities{Governance: govToken, Oracle: oracleToken}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
