package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsnotify/notification-hub/internal/config"
	"github.com/opsnotify/notification-hub/internal/notify"
	"github.com/opsnotify/notification-hub/internal/secrets"
	"github.com/opsnotify/notification-hub/internal/telemetry"
)

func (a *app) newSendCmd() *cobra.Command {
	var (
		provider, to, message   string
		description, issueType string
		extra                   map[string]string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification through any registered provider",
		Long: `Send a notification through any registered provider.

For jira, --to is the project key and --message the issue summary.
For slack, --to is the channel and --message the text.

Provider settings come from config (jira.*, slack.*) and <provider>_token
secrets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(provider)
			cfg := config.ProviderConfig(name)
			token, err := secretLoader().Lookup(name+"_token", cfg.Token)
			if err != nil && !errors.Is(err, secrets.ErrNotFound) {
				return err
			}
			cfg.Token = token

			p, err := notify.NewProvider(name, cfg)
			if err != nil {
				return err
			}
			res, err := telemetry.WrapProvider(p).SendNotification(cmd.Context(), to, message, notify.Options{
				Description: description,
				IssueType:   issueType,
				Extra:       extra,
			})
			if err != nil {
				return err
			}
			return outputJSON(a.out, map[string]interface{}{
				"status":   "success",
				"provider": p.Name(),
				"response": res,
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider tag: "+strings.Join(notify.Providers(), ", "))
	cmd.Flags().StringVar(&to, "to", "", "Destination (project key, channel)")
	cmd.Flags().StringVar(&message, "message", "", "Message or issue summary")
	cmd.Flags().StringVar(&description, "description", "", "Issue description (jira)")
	cmd.Flags().StringVar(&issueType, "issue-type", "", "Issue type (jira, default Task)")
	cmd.Flags().StringToStringVar(&extra, "opt", nil, "Provider-specific option as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
