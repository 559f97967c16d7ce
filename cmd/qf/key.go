package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/calehh/qf-app/crypto"
	"github.com/spf13/cobra"
)

const defaultKeyPath = "$HOME/.qf/config/owner_priv_key"

type keyArguments struct {
	Key string
}

var keyArgs keyArguments

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage account keys",
}

var keyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new account key file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKeyFile(os.ExpandEnv(keyArgs.Key))
		if err != nil {
			return err
		}
		fmt.Printf("address:%s\n", key.Address().Hex())
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the address and public key of a key file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.LoadKeyFile(os.ExpandEnv(keyArgs.Key))
		if err != nil {
			return err
		}
		fmt.Printf("address:%s\npk:%s\n", key.Address().Hex(), hex.EncodeToString(key.PublicKey()))
		return nil
	},
}

func init() {
	keyCmd.PersistentFlags().StringVarP(&keyArgs.Key, "key", "k", defaultKeyPath, "key file path")
	keyCmd.AddCommand(keyNewCmd)
	keyCmd.AddCommand(keyShowCmd)
}
