package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notification-builder",
		Short:         "Excerpt and copy engine for notification bundles",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(transformCmd(operationExcerpt))
	root.AddCommand(transformCmd(operationCopy))
	root.AddCommand(migrateCmd())
	return root
}
