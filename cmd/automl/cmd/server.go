package cmd

import (
	"github.com/devsapp/serverless-automl-api/pkg/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run the api server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")
		proxy, err := server.NewProxyServer(port, dbType(conf), conf)
		if err != nil {
			return err
		}
		go proxy.Start()
		logrus.Infof("api server listen on %s, executor=%s", port, conf.ExecutorType)

		// wait shutdown signal
		handleSignal()
		if err := proxy.Close(shutdownTimeout); err != nil {
			return err
		}
		logrus.Info("Server exiting")
		return nil
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "run the training agent behind a function trigger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetString("port")
		agent, err := server.NewAgentServer(port, dbType(conf), conf)
		if err != nil {
			return err
		}
		go agent.Start()
		logrus.Infof("agent listen on %s", port)

		handleSignal()
		if err := agent.Close(shutdownTimeout); err != nil {
			return err
		}
		logrus.Info("Agent exiting")
		return nil
	},
}

func init() {
	serverCmd.Flags().String("port", defaultPort, "server listen port")
	agentCmd.Flags().String("port", "9000", "agent listen port")
}
