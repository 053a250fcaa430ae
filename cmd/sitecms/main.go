package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sitecms",
	Short: "sitecms - a bilingual site editor built with Go, Echo, and templ",
	Long: `sitecms serves a Mongolian/English marketing site whose pages are
content documents edited in place from the admin, and publishes them through
a REST API.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	rootCmd.AddCommand(serveCmd, checkCmd, publishCmd, initCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sitecms version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("sitecms %s\n", version)
	},
}
