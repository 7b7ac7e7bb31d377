package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quizzleteam/quizd/internal"
	"github.com/quizzleteam/quizd/internal/core"
)

// ServeCommand is the main entrypoint for running quizd. It loads the
// configuration and runs the server until it is stopped by a signal or by
// typing "quit" on standard input.
func ServeCommand(cmd *cobra.Command, args []string) {
	config := core.LoadConfig(ConfigFlag)
	fmt.Println("using configuration directory:", ConfigFlag)

	// An explicit port argument overrides the configured one.
	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port <= 0 || port > 65535 {
			fmt.Println("invalid port:", args[0])
			os.Exit(1)
		}
		config.Server.Port = port
	}

	// Change to the same directory as the config file so that any relative
	// paths in the config file will resolve.
	if err := os.Chdir(ConfigFlag); err != nil {
		fmt.Println("error changing to config directory:", err)
		os.Exit(1)
	}

	// Bind the Controller to one top-level server context so that we can shut
	// down cleanly on SIGTERM or an operator typing "quit".
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go watchForQuit(cancel)

	controller := &internal.Controller{Config: config}
	controller.Start(ctx)

	fmt.Println("shut down")
}

// watchForQuit cancels the server context when "quit" is read from stdin.
func watchForQuit(cancelFn func()) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if scanner.Text() == "quit" {
			fmt.Println("waiting to shut down gracefully...")
			cancelFn()
			return
		}
	}
}
