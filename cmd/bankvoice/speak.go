package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var speakCmd = &cobra.Command{
	Use:   "speak <text...>",
	Short: "Ask the daemon to speak text",
	Long: `Ask bankvoiced to speak text immediately. Anything already being spoken
is interrupted.

Examples:
  bankvoice speak "Bạn vừa nhận 100 ngàn đồng"
  bankvoice speak Xin chào`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)
}

func runSpeak(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := daemonClient()
	if err != nil {
		return err
	}
	defer cancel()

	return client.Speak(ctx, strings.Join(args, " "))
}
