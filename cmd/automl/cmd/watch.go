package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devsapp/serverless-automl-api/pkg/client"
	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch <jobId>",
	Short: "follow a job until it completes or fails",
	Example: `  automl watch 6f1c2a9e --endpoint http://localhost:8000
  AUTOML_API_KEY=secret automl watch 6f1c2a9e --no-push`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.PoolGlobal.GetClient(viper.GetString("endpoint"), viper.GetString("api_key"))
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("poll-interval")
		opts := []client.WatchOption{client.WithPollInterval(interval)}
		if noPush, _ := cmd.Flags().GetBool("no-push"); noPush {
			opts = append(opts, client.WithoutPush())
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		out := cmd.OutOrStdout()
		final, err := client.NewWatcher(c, opts...).Watch(ctx, args[0],
			func(s *models.JobResponse, mode client.Mode) {
				fmt.Fprintf(out, "[%s] %s %s\n", mode, s.JobID, s.Status)
			})
		if err != nil {
			return err
		}
		body, err := json.MarshalIndent(final, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(body))
		if final.Status == "failed" {
			return fmt.Errorf("job %s failed: %s", final.JobID, final.ErrorMessage)
		}
		return nil
	},
}

func init() {
	flags := watchCmd.Flags()
	flags.String("endpoint", "http://localhost:8000", "api endpoint")
	flags.String("api-key", "", "api key sent as X-Api-Key")
	flags.Duration("poll-interval", client.DefaultPollInterval, "poll interval once the stream is unavailable")
	flags.Bool("no-push", false, "poll only, never open the event stream")
	viper.BindPFlag("endpoint", flags.Lookup("endpoint"))
	viper.BindPFlag("api_key", flags.Lookup("api-key"))
}
