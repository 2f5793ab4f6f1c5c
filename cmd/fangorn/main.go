package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootLogger = logrus.New()

func main() {
	rootCmd := &cobra.Command{Use: "fangorn", Short: "Decentralized conditional-disclosure worker"}
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
