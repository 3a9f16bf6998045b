package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	eventType    string
	eventPayload string
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Send and inspect events",
}

var eventSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit an event for delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiKey == "" {
			return fmt.Errorf("an API key is required: pass --api-key or set EVENTPULSE_API_KEY")
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(eventPayload), &payload); err != nil {
			return fmt.Errorf("payload must be a JSON object: %w", err)
		}

		out, err := doRequest("POST", "/send-event", map[string]any{
			"type":    eventType,
			"payload": payload,
		}, map[string]string{"x-api-key": apiKey})
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest("GET", "/events", nil, nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var eventAttemptsCmd = &cobra.Command{
	Use:   "attempts <event-id>",
	Short: "Show the delivery history for an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := doRequest("GET", "/events/"+args[0]+"/attempts", nil, nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

func init() {
	eventSendCmd.Flags().StringVar(&eventType, "type", "", "event type (required)")
	eventSendCmd.Flags().StringVar(&eventPayload, "payload", "{}", "event payload as a JSON object")
	eventSendCmd.MarkFlagRequired("type")

	eventCmd.AddCommand(eventSendCmd, eventListCmd, eventAttemptsCmd)
	rootCmd.AddCommand(eventCmd)
}
