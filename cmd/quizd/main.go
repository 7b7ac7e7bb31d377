package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ConfigFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "quizd",
		Short: "WordQuizzle game server and related tools",
		Run:   ServeCommand,
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", "./", "Path to the server config/data directory")

	serveCmd := &cobra.Command{
		Use:   "serve [port]",
		Short: "Runs the game server",
		Args:  cobra.MaximumNArgs(1),
		Run:   ServeCommand,
	}

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountDeleteCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(accountCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
