package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	zledger "github.com/zchainfoundation/zledger/pkg"
)

func main() {
	var configPath string
	var config zledger.Config

	// define root command
	rootCmd := &cobra.Command{
		Use: "zledgerd",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config = loadConfig(configPath, cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().String("webapi-port", "", "Web API port")
	rootCmd.PersistentFlags().String("webapi-bind", "", "Web API bind")
	rootCmd.PersistentFlags().String("store-db-file", "", "Store DB file")
	rootCmd.PersistentFlags().String("notifier-bind", "", "Cross-chain ZMQ bind endpoint")
	rootCmd.PersistentFlags().String("event-log", "", "Event log file")

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ledger server",
		Run: func(cmd *cobra.Command, args []string) {
			Server(config)
		},
	}

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Run: func(cmd *cobra.Command, args []string) {
			o, _ := json.MarshalIndent(config, ">", " ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)

	// Execute the Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}

// loadConfig layers command-line flags over the config file. Consensus
// parameters deliberately have no flags: those change only by editing
// the config of every node at once.
func loadConfig(configPath string, cmd *cobra.Command) zledger.Config {
	if env, set := os.LookupEnv("ZLEDGER_CONFIG"); set && configPath == "" {
		configPath = env
	}
	if configPath == "" {
		configPath = "config.yaml"
	}
	config := zledger.LoadConfig(configPath)

	if v, _ := cmd.Flags().GetString("webapi-port"); v != "" {
		config.WebAPI.Port = v
	}
	if v, _ := cmd.Flags().GetString("webapi-bind"); v != "" {
		config.WebAPI.Bind = v
	}
	if v, _ := cmd.Flags().GetString("store-db-file"); v != "" {
		config.Store.DBFile = v
	}
	if v, _ := cmd.Flags().GetString("notifier-bind"); v != "" {
		config.Notifier.Bind = v
	}
	if v, _ := cmd.Flags().GetString("event-log"); v != "" {
		config.EventLog.Filename = v
	}
	return config
}
