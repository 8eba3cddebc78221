package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calehh/democracy-app/agent"
	"github.com/calehh/democracy-app/app"
	app_config "github.com/calehh/democracy-app/config"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var homeDir string

var clCmd = &cobra.Command{
	Use:   "democ",
	Short: "democ runs a reputation weighted governance chain",
	Long: `democ tallies proposals with the reputation earned in community
ceremonies and enacts the approved ones on a CometBFT chain.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

// loadConfig reads config/config.toml under the home directory.
func loadConfig(home string) (*app_config.Config, error) {
	cfg := app_config.NewConfig(home)
	v := viper.New()
	v.SetConfigFile(filepath.Join(cfg.RootDir, "config", "config.toml"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.App.Home = cfg.RootDir
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return cfg, nil
}

// startIndexer follows the local node's rpc endpoint and serves the read API.
func startIndexer(ctx context.Context, cfg *app_config.Config, logger cmtlog.Logger) (*agent.ChainIndexer, error) {
	rpcUrl, err := url.Parse(cfg.RPC.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("parse rpc address: %w", err)
	}
	rpcUrl.Scheme = "http"
	indexer, err := agent.NewChainIndexer(logger, cfg.App.IndexerDBPath(), rpcUrl.String())
	if err != nil {
		return nil, err
	}
	go indexer.Start(ctx)
	service := agent.NewService(cfg.App.IndexerListen, indexer)
	go func() {
		if err := service.Start(); err != nil {
			logger.Error("indexer service stopped", "err", err)
		}
	}()
	return indexer, nil
}

func run() error {
	cfg, err := loadConfig(homeDir)
	if err != nil {
		return err
	}

	pv := privval.LoadFilePV(cfg.PrivValidatorKeyFile(), cfg.PrivValidatorStateFile())
	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}

	logger, err := cmtflags.ParseLogLevel(cfg.LogLevel, cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)), cmtconfig.DefaultLogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	democ, err := app.NewApp(cfg.App, logger)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(democ),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	democ.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		return fmt.Errorf("start comet node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var indexer *agent.ChainIndexer
	if cfg.App.IndexerEnable {
		if indexer, err = startIndexer(ctx, cfg, logger); err != nil {
			return err
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := node.Stop(); err != nil {
			logger.Error("stop comet node fail", "err", err)
		}
		node.Wait()
		democ.Stop()
		if indexer != nil {
			indexer.Close()
		}
	}()
	select {
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("shutdown timed out after %v", shutdownTimeout)
	case <-done:
		return nil
	}
}
