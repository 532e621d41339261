package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devsapp/serverless-automl-api/pkg/server"
	"github.com/devsapp/serverless-automl-api/pkg/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "train one job to its end, the kubernetes job entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID, _ := cmd.Flags().GetString("job-id")
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		backend, err := server.NewBackend(conf, dbType(conf))
		if err != nil {
			return err
		}
		defer backend.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return worker.NewRunner(backend.Store, nil).Run(ctx, jobID)
	},
}

func init() {
	workerCmd.Flags().String("job-id", "", "id of the job to train (required)")
	workerCmd.MarkFlagRequired("job-id")
}
