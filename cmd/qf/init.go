package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	app_config "github.com/calehh/qf-app/config"
	"github.com/calehh/qf-app/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Owner      string          `json:"owner" yaml:"owner"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

type initArguments struct {
	StartDelay        time.Duration
	VotingDelay       time.Duration
	VotingPeriod      time.Duration
	Timelock          time.Duration
	GracePeriod       time.Duration
	Decimals          uint8
	Strategy          string
	Threshold         string
	RestrictProposers bool
	FreezeAlpha       bool
	Allocations       []string
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long: `Initialize the validator's and node's configuration files, create the
round owner key, and write a genesis with the round parameters.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(FlagHome, "", "node home directory")
	initCmd.Flags().DurationVar(&initArgs.StartDelay, "start-delay", 0, "round start relative to genesis time")
	initCmd.Flags().DurationVar(&initArgs.VotingDelay, "voting-delay", 24*time.Hour, "time between round start and voting")
	initCmd.Flags().DurationVar(&initArgs.VotingPeriod, "voting-period", 7*24*time.Hour, "voting window length")
	initCmd.Flags().DurationVar(&initArgs.Timelock, "timelock", 24*time.Hour, "delay between finalization and redemption")
	initCmd.Flags().DurationVar(&initArgs.GracePeriod, "grace-period", 14*24*time.Hour, "how long queued proposals stay redeemable")
	initCmd.Flags().Uint8Var(&initArgs.Decimals, "decimals", 18, "base asset decimals")
	initCmd.Flags().StringVar(&initArgs.Strategy, "strategy", types.StrategyQuadratic, "distribution strategy: quadratic or threshold")
	initCmd.Flags().StringVar(&initArgs.Threshold, "threshold", "", "payout threshold for the threshold strategy")
	initCmd.Flags().BoolVar(&initArgs.RestrictProposers, "restrict-proposers", false, "only registered proposers may propose")
	initCmd.Flags().BoolVar(&initArgs.FreezeAlpha, "freeze-alpha", false, "reject alpha changes after finalization")
	initCmd.Flags().StringSliceVar(&initArgs.Allocations, "alloc", nil, "genesis balance as address=amount, repeatable")
}

func parseAllocations(allocs []string) ([]types.Allocation, error) {
	res := make([]types.Allocation, 0, len(allocs))
	for _, a := range allocs {
		addr, amt, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid allocation %q, want address=amount", a)
		}
		address, err := parseAddress(addr)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(amt)
		if err != nil {
			return nil, err
		}
		res = append(res, types.Allocation{Address: address, Amount: amount})
	}
	return res, nil
}

func genesisAppState(owner common.Address, genesisTime time.Time) (*types.GenesisAppState, error) {
	gs := types.DefaultGenesisAppState(owner, genesisTime.Add(initArgs.StartDelay))
	cfg := &gs.Params.Mechanism
	cfg.AssetDecimals = initArgs.Decimals
	cfg.VotingDelay = initArgs.VotingDelay
	cfg.VotingPeriod = initArgs.VotingPeriod
	cfg.TimelockDelay = initArgs.Timelock
	cfg.GracePeriod = initArgs.GracePeriod
	cfg.FreezeAlphaOnFinalize = initArgs.FreezeAlpha
	gs.Params.Strategy = initArgs.Strategy
	gs.Params.RestrictProposers = initArgs.RestrictProposers
	if initArgs.Threshold != "" {
		threshold, err := parseAmount(initArgs.Threshold)
		if err != nil {
			return nil, err
		}
		gs.Params.PayoutThreshold = threshold
	}
	allocs, err := parseAllocations(initArgs.Allocations)
	if err != nil {
		return nil, err
	}
	gs.Allocations = allocs
	return &gs, gs.Validate()
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(FlagHome)
	chainID, _ := cmd.Flags().GetString(FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)

	if chainID == "" {
		chainID = fmt.Sprintf("qf-chain-%v", rand.Uint64())
	}
	appConfig := app_config.DefaultConfig(home)

	genFile := appConfig.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !overwrite {
		return fmt.Errorf("genesis file %s already exists, use --%s", genFile, FlagOverwrite)
	}

	nodeID, pk, err := app_config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	owner, err := app_config.InitializeOwner(appConfig)
	if err != nil {
		return err
	}

	genesisTime := time.Now().UTC()
	gs, err := genesisAppState(common.HexToAddress(owner), genesisTime)
	if err != nil {
		return err
	}
	appState, err := json.Marshal(gs)
	if err != nil {
		return err
	}

	vals := []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}}
	appGenesis := &types.GenesisDoc{
		GenesisTime:     genesisTime,
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("Failed to export genesis file %v", err)
	}
	if err = app_config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig); err != nil {
		return err
	}
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Owner:      owner,
		AppMessage: appGenesis.AppState,
	})
}
