package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eunoia-health/eunoia/internal/cli"
	"github.com/eunoia-health/eunoia/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "eunoia",
		Short: "Eunoia CLI - Menstrual health chat companion",
		Long: `Eunoia CLI provides commands to talk to the Eunoia chatbot.

Environment variables:
  EUNOIA_API_URL   API base URL (default: http://localhost:8080)
  EUNOIA_USER_ID   User identity for conversations (default: anonymous)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().String("user", "", "User identity (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.ConversationsCmd())
	rootCmd.AddCommand(client.HistoryCmd())
	rootCmd.AddCommand(client.ClearCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
