package cmd

import (
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/utils"
	"github.com/spf13/cobra"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <apiKey>",
	Short: "print the apiKeyHash config value of an api key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := utils.EncryptApiKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
