package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eunoia-health/eunoia/internal/cli"
	"github.com/eunoia-health/eunoia/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eunoiad",
		Short: "Eunoia daemon",
		Long:  "Eunoia daemon for running the menstrual health chat API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
