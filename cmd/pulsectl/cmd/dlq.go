package cmd

import (
	"github.com/spf13/cobra"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and replay dead letters",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead letters, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest("GET", "/dlq", nil, nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry <dlq-id>",
	Short: "Replay a dead letter as a fresh delivery task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest("POST", "/dlq/"+args[0]+"/retry", nil, nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

func init() {
	dlqCmd.AddCommand(dlqListCmd, dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
