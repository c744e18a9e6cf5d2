// Command equitylens-admin inspects and maintains the section cache without starting the server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/app"
	"github.com/ternarybob/equitylens/internal/common"
)

var (
	configFiles []string
	storageType string

	// Set by the root PersistentPreRunE
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "equitylens-admin",
	Short:         "Inspect and maintain the EquityLens section cache",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		if len(configFiles) == 0 {
			if _, err := os.Stat("equitylens.toml"); err == nil {
				configFiles = append(configFiles, "equitylens.toml")
			}
		}

		var err error
		config, err = common.LoadFromFiles(configFiles...)
		if err != nil {
			return err
		}
		if storageType != "" {
			config.Storage.Type = storageType
		}
		// Admin output goes to the terminal; keep the log file out of it
		config.Logging.Output = []string{"stdout"}
		if err := config.Validate(); err != nil {
			return err
		}

		logger = common.InitLogger(config)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "Cache backend override: sqlite, file or badger")

	rootCmd.AddCommand(listCmd, showCmd, deleteCmd, resolveCmd, migrateCmd, warmupCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openServices builds storage and services; callers must Close the result
func openServices() (*app.App, error) {
	return app.NewServices(config, logger)
}
