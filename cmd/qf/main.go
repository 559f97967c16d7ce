package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(proposalCmd)
	rootCmd.AddCommand(mechanismCmd)
	rootCmd.AddCommand(proposersCmd)
	rootCmd.AddCommand(alphaCmd)
	for _, cmd := range txCmds {
		rootCmd.AddCommand(cmd)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
