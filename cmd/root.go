package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the zoomscribe application
var rootCmd = &cobra.Command{
	Use:   "zoomscribe",
	Short: "Retrieves and downloads Zoom cloud recordings",
	Long: `zoomscribe lists Zoom cloud recordings through the server-to-server OAuth
API and downloads their assets into a deterministic local directory layout.

It can run as:
  - A standalone CLI tool (default)
  - An HTTP server exposing the listing and download API`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "zoomscribe version %s\n" .Version}}`)

	// If no subcommand is provided, run the download command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "download")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the zoomscribe version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zoomscribe version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
