package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"intentd/internal/config"
	"intentd/internal/httpapi"
	"intentd/internal/rpc"
	"intentd/internal/state"
	"intentd/internal/tools"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "intentd",
		Short: "Shared-state server for the intent clarification assistant",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "intentd.yml", "path to config file")

	root.AddCommand(serveCmd(), httpCmd(), replCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (config.Config, *state.Store, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return cfg, nil, nil, err
	}
	store := state.New(tools.NewRegistry(), logger)
	return cfg, store, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	// Stdout carries the JSON-RPC channel; logs go to stderr.
	zc.OutputPaths = []string{"stderr"}
	if level == "debug" {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if parsed, err := zapcore.ParseLevel(level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(parsed)
	}
	return zc.Build()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the stdio JSON-RPC channel (default agent transport)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			server := rpc.NewServer(store)
			transport := rpc.NewTransport(server, store, os.Stdin, os.Stdout, logger, cfg.EchoSnapshots)
			logger.Info("stdio channel started", zap.Bool("echoSnapshots", cfg.EchoSnapshots))
			return transport.Start()
		},
	}
}

func httpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "http",
		Short: "Run the HTTP channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			server := httpapi.New(store, logger)
			logger.Info("http channel started", zap.String("listen", cfg.Listen))
			return http.ListenAndServe(cfg.Listen, server.Handler())
		},
	}
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive tool dispatch loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			fmt.Println("intentd repl")
			fmt.Println("Type 'tools' to list tools, '<tool> {json args}' to dispatch, 'doc' to print the document, 'quit' to exit")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("intentd> ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				switch {
				case input == "":
					continue
				case input == "quit" || input == "exit":
					return nil
				case input == "tools":
					for _, t := range store.Registry().List() {
						fmt.Printf("  %-28s %s\n", t.Name, t.Description)
					}
					continue
				case input == "doc":
					printJSON(store.Snapshot())
					continue
				}
				dispatchLine(store, input)
			}
			return scanner.Err()
		},
	}
}

func dispatchLine(store *state.Store, input string) {
	parts := strings.SplitN(input, " ", 2)
	name := parts[0]
	args := make(map[string]any)
	if len(parts) > 1 {
		if err := json.Unmarshal([]byte(parts[1]), &args); err != nil {
			fmt.Printf("Error: invalid JSON arguments: %v\n", err)
			return
		}
	}
	result, err := store.Dispatch(name, args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printJSON(result)
}

func printJSON(v any) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error formatting result: %v\n", err)
		return
	}
	fmt.Println(string(output))
}
