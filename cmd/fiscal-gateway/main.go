// Command fiscal-gateway runs the multi-tenant NF-e / NFS-e gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fiscal-gateway",
		Short: "Brazilian fiscal document gateway",
		Long: `fiscal-gateway turns tenant JSON requests into signed NF-e and
São Paulo NFS-e documents, transmits them to the tax authorities over
mutual TLS and returns normalized JSON results.`,
		SilenceUsage: true,
	}
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", version, buildDate, commit)

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newAccessKeyCommand())
	cmd.AddCommand(newVerifyCommand())
	cmd.AddCommand(newDebugCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fiscal-gateway %s\ncommit: %s\nbuilt: %s\n", version, commit, buildDate)
		},
	}
}
