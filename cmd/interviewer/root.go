package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"interviewer/pkg/logx"
)

var rootCmd = &cobra.Command{
	Use:   "interviewer",
	Short: "LLM-driven structured interviews",
	Long: `Interviewer conducts structured interviews driven by an LLM: it asks one
question per topic, validates and probes each answer, and closes with overall
feedback. Sessions checkpoint after every step, so an interrupted interview
resumes exactly where it stopped.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logx.SetDebug(true, nil)
		}
	}
}
