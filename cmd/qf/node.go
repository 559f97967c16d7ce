package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/qf-app/app"
	app_config "github.com/calehh/qf-app/config"
	"github.com/calehh/qf-app/indexer"
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

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "qf",
	Short: "qf runs a quadratic funding round as a CometBFT chain",
	Long: `qf runs a quadratic funding round as a CometBFT application.
Participants deposit for voting power, vote on proposals, and
recipients redeem vault shares for their matched funding.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func loadConfig(home string) (*app_config.Config, error) {
	appConfig := &app_config.Config{
		Config: app_config.DefaultQFCometConfig(),
		App:    app_config.DefaultAppConfig(home),
	}
	appConfig.SetRoot(home)
	viper.SetConfigFile(fmt.Sprintf("%s/%s", home, "config/config.toml"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := viper.Unmarshal(appConfig); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := appConfig.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	appConfig.App.Home = home
	appConfig.App.TimeoutCommit = uint64(appConfig.Consensus.TimeoutCommit.Seconds())
	return appConfig, nil
}

func startIndexer(ctx context.Context, appConfig *app_config.Config, logger cmtlog.Logger) error {
	rpcUrl, err := url.Parse(appConfig.RPC.ListenAddress)
	if err != nil {
		return err
	}
	rpcUrl.Scheme = "http"
	idx, err := indexer.NewChainIndexer(logger, appConfig.App.IndexerDBFile(), rpcUrl.String(), appConfig.App.Indexer.PollInterval)
	if err != nil {
		return err
	}
	go idx.Start(ctx)
	svc := indexer.NewService(appConfig.App.Indexer.ListenAddress, idx)
	go func() {
		if err := svc.Start(); err != nil {
			logger.Error("indexer service stopped", "err", err)
		}
	}()
	return nil
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = os.ExpandEnv(app_config.DefaultHomeDir)
	}
	appConfig, err := loadConfig(homeDir)
	if err != nil {
		log.Fatal(err)
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	app, err := app.NewQFApp(appConfig.App, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	app.Start(node.BlockStore())
	err = node.Start()
	if err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if appConfig.App.Indexer.Enable {
		if err = startIndexer(ctx, appConfig, logger); err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut done...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			err = node.Stop()
			if err != nil {
				log.Fatalf("stop comet node err %s", err.Error())
			}
			node.Wait()
			app.Stop()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
