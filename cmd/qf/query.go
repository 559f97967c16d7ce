package main

import (
	"context"
	"encoding/binary"
	"os"
	"strconv"

	"github.com/calehh/qf-app/crypto"
	"github.com/calehh/qf-app/types"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url  string
	Key  string
	Pool string
}

var queryArgs queryArguments

var accountCmd = &cobra.Command{
	Use:   "account [address]",
	Short: "Show balance, nonce, shares and voting power of an account",
	Long:  `Without an address the account of --key is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  accountRun,
}

var proposalCmd = &cobra.Command{
	Use:   "proposal [id]",
	Short: "Show one proposal or all of them with state and tally",
	Args:  cobra.MaximumNArgs(1),
	RunE:  proposalRun,
}

var mechanismCmd = &cobra.Command{
	Use:   "mechanism",
	Short: "Show the round configuration, globals and totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var view types.MechanismView
		if err := abciQuery(context.Background(), queryArgs.Url, "/mechanism/", nil, &view); err != nil {
			return err
		}
		return printJSON(view)
	},
}

var proposersCmd = &cobra.Command{
	Use:   "proposers",
	Short: "List the registered proposers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var proposers []string
		if err := abciQuery(context.Background(), queryArgs.Url, "/proposers/", nil, &proposers); err != nil {
			return err
		}
		return printJSON(proposers)
	},
}

var alphaCmd = &cobra.Command{
	Use:   "alpha",
	Short: "Show the current alpha and the optimal alpha for a matching pool",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := queryAlpha(context.Background(), queryArgs.Url, queryArgs.Pool)
		if err != nil {
			return err
		}
		return printJSON(view)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{accountCmd, proposalCmd, mechanismCmd, proposersCmd, alphaCmd} {
		urlFlag(cmd, &queryArgs.Url)
	}
	accountCmd.Flags().StringVarP(&queryArgs.Key, "key", "k", defaultKeyPath, "key file used when no address is given")
	alphaCmd.Flags().StringVar(&queryArgs.Pool, "pool", "", "matching pool size, defaults to the funds in the pool")
}

func queryAccount(ctx context.Context, url string, address string) (*types.AccountView, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	var view types.AccountView
	if err = abciQuery(ctx, url, "/accounts/", addr.Bytes(), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func queryAlpha(ctx context.Context, url string, pool string) (*types.AlphaView, error) {
	var data []byte
	if pool != "" {
		if _, err := parseAmount(pool); err != nil {
			return nil, err
		}
		data = []byte(pool)
	}
	var view types.AlphaView
	if err := abciQuery(ctx, url, "/alpha/", data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func accountRun(cmd *cobra.Command, args []string) error {
	var address string
	if len(args) > 0 {
		address = args[0]
	} else {
		key, err := crypto.LoadKeyFile(os.ExpandEnv(queryArgs.Key))
		if err != nil {
			return err
		}
		address = key.Address().Hex()
	}
	view, err := queryAccount(context.Background(), queryArgs.Url, address)
	if err != nil {
		return err
	}
	return printJSON(view)
}

func proposalRun(cmd *cobra.Command, args []string) error {
	var data []byte
	if len(args) > 0 {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		data = binary.BigEndian.AppendUint64(nil, id)
		var view types.ProposalView
		if err = abciQuery(context.Background(), queryArgs.Url, "/proposals/", data, &view); err != nil {
			return err
		}
		return printJSON(view)
	}
	var views []types.ProposalView
	if err := abciQuery(context.Background(), queryArgs.Url, "/proposals/", data, &views); err != nil {
		return err
	}
	return printJSON(views)
}
