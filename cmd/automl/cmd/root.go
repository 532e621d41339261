package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultPort       = "8000"
	shutdownTimeout   = 5 * time.Second // 5s
	defaultConfigPath = "config.yaml"
)

var rootCmd = &cobra.Command{
	Use:   "automl",
	Short: "serverless automl api",
	Long: `Serverless AutoML API: dataset upload, training job lifecycle,
model deployment with cached inference and job status streaming.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
}

// Execute run the command line, exit 1 on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initViper)

	flags := rootCmd.PersistentFlags()
	flags.String("config", defaultConfigPath, "config file path, missing file means defaults")
	flags.String("mode", "", "work mode debug|dev|product, overrides the config file")
	flags.String("logFile", "", "rotating log file, overrides the config file")
	flags.String("dbType", "", "datastore type sqlite|tableStore|redis|postgres, overrides the config file")
	for _, name := range []string{"config", "mode", "logFile", "dbType"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(serverCmd, agentCmd, workerCmd, watchCmd, hashKeyCmd)
}

func initViper() {
	viper.SetEnvPrefix("AUTOML")
	viper.AutomaticEnv()
}

// loadConfig config file and env credentials, then flag overrides
func loadConfig() (*config.Config, error) {
	if err := config.InitConfig(viper.GetString("config")); err != nil {
		return nil, err
	}
	conf := config.ConfigGlobal
	if mode := viper.GetString("mode"); mode != "" {
		conf.Mode = mode
	}
	if file := viper.GetString("logFile"); file != "" {
		conf.LogFile = file
	}
	if dbType := viper.GetString("dbType"); dbType != "" {
		conf.DbType = dbType
	}
	log.Init(conf.Mode, conf.LogFile)
	return conf, nil
}

func dbType(conf *config.Config) datastore.DatastoreType {
	return datastore.DatastoreType(conf.DbType)
}

func handleSignal() {
	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
}
