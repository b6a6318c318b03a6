package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"interviewer/pkg/catalog"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Inspect and validate topic catalogs",
}

var topicsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a catalog file parses and every topic is usable",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}

		topics, err := catalog.Load(path)
		if err != nil {
			return err
		}
		if err := catalog.Validate(topics); err != nil {
			return fmt.Errorf("catalog %s: %w", path, err)
		}

		fmt.Printf("%s: %d topics across %d themes\n", path, len(topics), len(catalog.ByTheme(topics)))
		return nil
	},
}

var topicsShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "List the topics an interview would cover",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		topics, err := catalog.Load(path)
		if err != nil {
			return err
		}

		for _, group := range catalog.ByTheme(topics) {
			fmt.Printf("%s\n", group.Theme)
			for _, name := range group.Topics {
				fmt.Printf("  - %s\n", name)
			}
		}
		fmt.Printf("\n%d topics\n", len(topics))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.AddCommand(topicsValidateCmd)
	topicsCmd.AddCommand(topicsShowCmd)
}
