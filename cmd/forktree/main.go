package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "forktree",
		Short:        "forktree - rebuild the branch tree of forked conversations",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(treeCmd())
	rootCmd.AddCommand(forkCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(openCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
