package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   `peer-flood`,
	Short: "peer-flood is an unstructured peer to peer file sharing overlay",
	Long: `peer-flood runs a node of an unstructured peer to peer overlay. Nodes find
files by flooding keyword searches to their neighbors with an expanding hop
count, and download matches directly from the node that answered.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newNodeCmd())
}
