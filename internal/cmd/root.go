package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/taskstate/tasksync/internal/config"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Keep task status indicators in sync with the server",
	Long: `tasksync loads a page that lists background tasks, subscribes to status
pushes for the ones still in progress and updates the indicators as tasks
finish. Finished tasks are acknowledged back to the server as seen.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig reads the config file and TASKSYNC_* overrides into the global
// viper, so bound flags win over both.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWith(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
