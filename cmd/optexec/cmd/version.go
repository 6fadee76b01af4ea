package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the optexec CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("optexec version %s\n", version)
		fmt.Println("Options position lifecycle engine with hard risk limits")
		fmt.Println("https://github.com/rustyeddy/optexec")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
