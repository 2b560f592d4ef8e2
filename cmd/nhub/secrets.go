package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opsnotify/notification-hub/internal/config"
	"github.com/opsnotify/notification-hub/internal/debug"
	"github.com/opsnotify/notification-hub/internal/secrets"
)

// keyringFileDir backs the encrypted-file keyring on hosts without a native one.
const keyringFileDir = "~/.config/nhub/credentials"

// openKeyring is swapped out in tests.
var openKeyring = func() (keyring.Keyring, error) {
	return secrets.OpenKeyring(secrets.ServiceName, keyringFileDir)
}

// secretLoader returns the token lookup chain for the current config.
// An unavailable keyring is logged and skipped.
func secretLoader() *secrets.Loader {
	l := &secrets.Loader{Dir: config.GetString("secrets-dir")}
	if config.GetBool("keyring") {
		ring, err := openKeyring()
		if err != nil {
			debug.Logger().Warn("keyring unavailable", "error", err)
		} else {
			l.Keyring = ring
		}
	}
	return l
}

func (a *app) newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage provider tokens in the OS keyring",
		Args:  cobra.NoArgs,
		RunE:  requireSubcommand,
		Long: `Store or remove provider tokens in the OS keyring.

Well-known names: jira_token, slack_token. Set keyring: true (or
NHUB_KEYRING=true) so lookups consult the keyring.`,
	}
	cmd.AddCommand(a.newSecretsSetCmd(), a.newSecretsDeleteCmd())
	return cmd
}

func (a *app) newSecretsSetCmd() *cobra.Command {
	var name, value string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a secret (prompts, or reads stdin, when --value is absent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				v, err := a.readSecret(name)
				if err != nil {
					return err
				}
				value = v
			}
			if value == "" {
				return errors.New("secret value is empty")
			}

			ring, err := openKeyring()
			if err != nil {
				return err
			}
			if err := (&secrets.Loader{Keyring: ring}).Store(name, value); err != nil {
				return err
			}
			return outputJSON(a.out, map[string]string{"status": "success", "name": name})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Secret name (e.g. jira_token)")
	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// readSecret prompts on a terminal and otherwise reads the value from stdin.
func (a *app) readSecret(name string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var value string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title(fmt.Sprintf("Value for %s", name)).
					EchoMode(huh.EchoModePassword).
					Value(&value),
			),
		).WithOutput(os.Stderr).Run()
		if err != nil {
			return "", fmt.Errorf("prompt: %w", err)
		}
		return strings.TrimSpace(value), nil
	}

	data, err := io.ReadAll(a.in)
	if err != nil {
		return "", fmt.Errorf("read secret from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *app) newSecretsDeleteCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a secret from the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := openKeyring()
			if err != nil {
				return err
			}
			if err := (&secrets.Loader{Keyring: ring}).Remove(name); err != nil {
				return err
			}
			return outputJSON(a.out, map[string]string{"status": "success", "name": name})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Secret name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
