package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/opsnotify/notification-hub/internal/config"
	"github.com/opsnotify/notification-hub/internal/notify"
	"github.com/opsnotify/notification-hub/internal/secrets"
	"github.com/opsnotify/notification-hub/internal/slack"
	"github.com/opsnotify/notification-hub/internal/telemetry"
)

func (a *app) newSlackCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Slack chat operations",
		Args:  cobra.NoArgs,
		RunE:  requireSubcommand,
		Long: `Post messages to Slack channels.

The bot token comes from --token, slack.token / NHUB_SLACK_TOKEN,
<secrets-dir>/slack_token or the OS keyring, in that order.`,
	}
	cmd.PersistentFlags().StringVar(&token, "token", "", "Slack bot token (default: secrets-dir/slack_token, keyring)")
	cmd.AddCommand(a.newSlackSendCmd(&token))
	return cmd
}

func slackProvider(cmd *cobra.Command, token string) (notify.Provider, error) {
	cfg := config.ProviderConfig("slack")
	if cmd.Flags().Changed("token") {
		cfg.Token = token
	}
	tok, err := secretLoader().Lookup(secrets.SlackToken, cfg.Token)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return nil, err
	}
	cfg.Token = tok

	p, err := slack.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *app) newSlackSendCmd(token *string) *cobra.Command {
	var (
		channel, message, threadTS string
		extra                      map[string]string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Post a message to a channel",
		Long: `Post a message to a channel.

Additional chat.postMessage parameters may be passed with --opt key=value:
thread_ts, username, icon_emoji, icon_url, parse, reply_broadcast,
unfurl_links, unfurl_media, link_names, mrkdwn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := notify.Options{Extra: map[string]string{}}
			for k, v := range extra {
				opts.Extra[k] = v
			}
			if threadTS != "" {
				opts.Extra["thread_ts"] = threadTS
			}

			p, err := slackProvider(cmd, *token)
			if err != nil {
				return err
			}
			res, err := telemetry.WrapProvider(p).SendNotification(cmd.Context(), channel, message, opts)
			if err != nil {
				return err
			}
			return outputJSON(a.out, map[string]interface{}{"status": "success", "response": res})
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel ID or name")
	cmd.Flags().StringVar(&message, "message", "", "Message text")
	cmd.Flags().StringVar(&threadTS, "thread-ts", "", "Reply in the thread with this timestamp")
	cmd.Flags().StringToStringVar(&extra, "opt", nil, "Extra message parameter as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("channel")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
