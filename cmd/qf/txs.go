package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/calehh/qf-app/crypto"
	"github.com/calehh/qf-app/mechanism"
	"github.com/calehh/qf-app/qf"
	"github.com/calehh/qf-app/tx"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url    string
	Key    string
	Nonce  int64
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	cmd.Flags().StringVarP(&args.Key, "key", "k", defaultKeyPath, "key file that signs the tx")
	cmd.Flags().Int64VarP(&args.Nonce, "nonce", "n", -1, "account nonce, queried from the node when negative")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "print the signed tx instead of sending it")
}

// sendTx signs a tx with the key file and broadcasts it.
func sendTx(ctx context.Context, args *txArguments, tp tx.QFTxType, payload any) error {
	key, err := crypto.LoadKeyFile(os.ExpandEnv(args.Key))
	if err != nil {
		return err
	}
	cli, err := newClient(args.Url)
	if err != nil {
		return err
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis err: %w", err)
	}
	chainId := gres.Genesis.ChainID
	nonce := uint64(args.Nonce)
	if args.Nonce < 0 {
		act, err := queryAccount(ctx, args.Url, key.Address().Hex())
		if err != nil {
			return err
		}
		nonce = act.Nonce
	}
	btx := tx.NewQFTx(tp, nonce, key.Address(), payload)
	if err = key.SignTx(btx, chainId); err != nil {
		return fmt.Errorf("sign tx err: %w", err)
	}
	dat, err := tx.MarshalQFTx(btx)
	if err != nil {
		return err
	}
	if args.NoSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx err: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	if res.Code != 0 {
		return fmt.Errorf("tx rejected, code %d: %s", res.Code, res.Log)
	}
	return nil
}

type buildFunc func(args []string) (tx.QFTxType, any, error)

func newTxCmd(use, short string, nargs int, build buildFunc) *cobra.Command {
	targs := &txArguments{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tp, payload, err := build(args)
			if err != nil {
				return err
			}
			return sendTx(context.Background(), targs, tp, payload)
		},
	}
	txFlags(cmd, targs)
	return cmd
}

func parseId(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", s)
	}
	return id, nil
}

var (
	redeemReceiver, redeemOwner string
	transferFrom                string
	grantRevoke                 bool
	optimizePool                string
	optimizeUrl                 string
)

var signupCmd = newTxCmd("signup <amount>", "Deposit assets for voting power", 1, func(args []string) (tx.QFTxType, any, error) {
	amount, err := parseAmount(args[0])
	return tx.QFTxTypeSignup, &tx.SignupTx{Amount: amount}, err
})

var fundCmd = newTxCmd("fund <amount>", "Add assets to the matching pool", 1, func(args []string) (tx.QFTxType, any, error) {
	amount, err := parseAmount(args[0])
	return tx.QFTxTypeFundPool, &tx.FundPoolTx{Amount: amount}, err
})

var proposeCmd = newTxCmd("propose <recipient> <description>", "Create a proposal for a recipient", 2, func(args []string) (tx.QFTxType, any, error) {
	recipient, err := parseAddress(args[0])
	return tx.QFTxTypePropose, &tx.ProposeTx{Recipient: recipient, Description: args[1]}, err
})

var voteCmd = newTxCmd("vote <proposal> <weight> <recipient>", "Spend weight squared voting power on a proposal", 3, func(args []string) (tx.QFTxType, any, error) {
	id, err := parseId(args[0])
	if err != nil {
		return 0, nil, err
	}
	weight, err := parseAmount(args[1])
	if err != nil {
		return 0, nil, err
	}
	recipient, err := parseAddress(args[2])
	return tx.QFTxTypeVote, &tx.VoteTx{Proposal: id, Support: uint8(mechanism.VoteFor), Weight: weight, Recipient: recipient}, err
})

var cancelCmd = newTxCmd("cancel <proposal>", "Cancel a proposal you made", 1, func(args []string) (tx.QFTxType, any, error) {
	id, err := parseId(args[0])
	return tx.QFTxTypeCancel, &tx.CancelTx{Proposal: id}, err
})

var finalizeCmd = newTxCmd("finalize", "Finalize the vote tally and start the timelock", 0, func(args []string) (tx.QFTxType, any, error) {
	return tx.QFTxTypeFinalize, &tx.FinalizeTx{}, nil
})

var queueCmd = newTxCmd("queue <proposal>", "Queue a succeeded proposal and mint its shares", 1, func(args []string) (tx.QFTxType, any, error) {
	id, err := parseId(args[0])
	return tx.QFTxTypeQueue, &tx.QueueTx{Proposal: id}, err
})

var redeemCmd = newTxCmd("redeem <shares>", "Burn shares for assets", 1, func(args []string) (tx.QFTxType, any, error) {
	shares, err := parseAmount(args[0])
	if err != nil {
		return 0, nil, err
	}
	receiver, err := parseAddress(redeemReceiver)
	if err != nil {
		return 0, nil, err
	}
	owner, err := parseAddress(redeemOwner)
	return tx.QFTxTypeRedeem, &tx.RedeemTx{Shares: shares, Receiver: receiver, Owner: owner}, err
})

var transferCmd = newTxCmd("transfer <to> <amount>", "Transfer vault shares", 2, func(args []string) (tx.QFTxType, any, error) {
	to, err := parseAddress(args[0])
	if err != nil {
		return 0, nil, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return 0, nil, err
	}
	from, err := parseAddress(transferFrom)
	return tx.QFTxTypeTransferShares, &tx.TransferSharesTx{From: from, To: to, Amount: amount}, err
})

var approveCmd = newTxCmd("approve <spender> <amount>", "Allow a spender to move your shares", 2, func(args []string) (tx.QFTxType, any, error) {
	spender, err := parseAddress(args[0])
	if err != nil {
		return 0, nil, err
	}
	amount, err := parseAmount(args[1])
	return tx.QFTxTypeApprove, &tx.ApproveTx{Spender: spender, Amount: amount}, err
})

var setAlphaCmd = newTxCmd("set-alpha <numerator> <denominator>", "Set the quadratic weight alpha", 2, func(args []string) (tx.QFTxType, any, error) {
	num, err := parseAmount(args[0])
	if err != nil {
		return 0, nil, err
	}
	den, err := parseAmount(args[1])
	if err != nil {
		return 0, nil, err
	}
	alpha := qf.Alpha{Numerator: num, Denominator: den}
	return tx.QFTxTypeSetAlpha, &tx.SetAlphaTx{Alpha: alpha}, alpha.Validate()
})

var optimizeCmd = newTxCmd("optimize", "Set alpha to the value that exhausts the matching pool", 0, func(args []string) (tx.QFTxType, any, error) {
	view, err := queryAlpha(context.Background(), optimizeUrl, optimizePool)
	if err != nil {
		return 0, nil, err
	}
	fmt.Printf("optimal alpha %s for pool %s\n", view.Optimal, view.MatchingPool.Dec())
	return tx.QFTxTypeSetAlpha, &tx.SetAlphaTx{Alpha: view.Optimal}, nil
})

var grantCmd = newTxCmd("grant <account>", "Add or remove a registered proposer", 1, func(args []string) (tx.QFTxType, any, error) {
	account, err := parseAddress(args[0])
	return tx.QFTxTypeGrantProposer, &tx.GrantProposerTx{Account: account, Revoke: grantRevoke}, err
})

var sweepCmd = newTxCmd("sweep <to>", "Move unclaimed assets out after the grace period", 1, func(args []string) (tx.QFTxType, any, error) {
	to, err := parseAddress(args[0])
	return tx.QFTxTypeSweep, &tx.SweepTx{To: to}, err
})

var sendCmd = newTxCmd("send <to> <amount>", "Send base assets", 2, func(args []string) (tx.QFTxType, any, error) {
	to, err := parseAddress(args[0])
	if err != nil {
		return 0, nil, err
	}
	amount, err := parseAmount(args[1])
	return tx.QFTxTypeSend, &tx.SendTx{To: to, Amount: amount}, err
})

var txCmds = []*cobra.Command{
	signupCmd, fundCmd, proposeCmd, voteCmd, cancelCmd, finalizeCmd, queueCmd,
	redeemCmd, transferCmd, approveCmd, setAlphaCmd, optimizeCmd, grantCmd,
	sweepCmd, sendCmd,
}

func init() {
	redeemCmd.Flags().StringVar(&redeemReceiver, "receiver", "", "asset receiver, defaults to the signer")
	redeemCmd.Flags().StringVar(&redeemOwner, "owner", "", "share owner, defaults to the signer")
	transferCmd.Flags().StringVar(&transferFrom, "from", "", "spend an allowance from this owner")
	grantCmd.Flags().BoolVar(&grantRevoke, "revoke", false, "remove the account instead")
	optimizeCmd.Flags().StringVar(&optimizePool, "pool", "", "matching pool size, defaults to the funds in the pool")
	optimizeUrl = "http://127.0.0.1:26657"
	optimizeCmd.PreRun = func(cmd *cobra.Command, args []string) {
		optimizeUrl, _ = cmd.Flags().GetString("url")
	}
}
