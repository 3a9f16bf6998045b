package cmd

import (
	"github.com/spf13/cobra"
)

var (
	webhookURL  string
	webhookName string
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage webhook destinations",
}

var webhookRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a webhook destination",
	Long: `Register a new webhook destination. The signing secret and API key
are printed once and cannot be retrieved again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest("POST", "/register-webhook", map[string]any{
			"url":  webhookURL,
			"name": webhookName,
		}, nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

func init() {
	webhookRegisterCmd.Flags().StringVar(&webhookURL, "url", "", "destination URL (required)")
	webhookRegisterCmd.Flags().StringVar(&webhookName, "name", "", "display name (required)")
	webhookRegisterCmd.MarkFlagRequired("url")
	webhookRegisterCmd.MarkFlagRequired("name")

	webhookCmd.AddCommand(webhookRegisterCmd)
	rootCmd.AddCommand(webhookCmd)
}
