package main

import (
	"fmt"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"interviewer/pkg/config"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage encrypted provider credentials",
	Long: `Stores API keys in an encrypted file (.interviewer/secrets.json.enc) so they
never sit in plain text. The serve and run commands decrypt it at startup when
INTERVIEWER_PASSWORD is set; environment variables remain the fallback.`,
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <NAME>",
	Short: "Set a secret, e.g. OPENAI_API_KEY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir, _ := cmd.Flags().GetString("dir")

		password, err := readPassword("Secrets password: ")
		if err != nil {
			return err
		}

		secrets := map[string]string{}
		if config.SecretsFileExists(dir) {
			secrets, err = config.DecryptSecretsFile(dir, password)
			if err != nil {
				return err
			}
		}

		value, err := readPassword(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			return err
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("value for %s is empty", name)
		}

		secrets[name] = value
		if err := config.EncryptSecretsFile(dir, password, secrets); err != nil {
			return err
		}

		fmt.Printf("Saved %s (%d secrets stored)\n", name, len(secrets))
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored secret names (never values)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if !config.SecretsFileExists(dir) {
			fmt.Println("No secrets file found.")
			return nil
		}

		password, err := readPassword("Secrets password: ")
		if err != nil {
			return err
		}

		secrets, err := config.DecryptSecretsFile(dir, password)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(secrets))
		for name := range secrets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.PersistentFlags().String("dir", ".", "Directory holding the secrets file")
}

// readPassword prompts for input with terminal echo disabled.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
