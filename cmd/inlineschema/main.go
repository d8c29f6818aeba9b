package main

import (
	"os"

	"github.com/ged/inlineschema/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "inlineschema",
	Short: "Inspect and manage the inlineschema migration ledger",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		doc := loadConfigDoc()
		level := common.ParseLogLevel(doc.Logging.Level)
		if doc.Logging.Format == "json" {
			common.SetDefaultLogger(common.NewJSONLogger(level))
		} else {
			common.SetDefaultLogger(common.NewLogger(level))
		}
	},
}

func init() {
	// Defaults
	v := viper.GetViper()
	v.SetDefault("config", "./config.yaml")
	v.SetDefault("format", "text")

	// Environment variables support: INLINESCHEMA_CONFIG, ...
	v.SetEnvPrefix("INLINESCHEMA")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to a config yaml with ledger settings")
	statusCmd.Flags().String("format", v.GetString("format"), "output format: text or yaml")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("format", statusCmd.Flags().Lookup("format"))

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initLedgerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		common.GetLogger().Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
