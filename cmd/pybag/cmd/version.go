package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siliconlad/pybag/mcap"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pybag version",
	Run: func(*cobra.Command, []string) {
		fmt.Println(mcap.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
