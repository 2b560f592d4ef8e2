// Package slack implements the chat notification provider on top of
// github.com/slack-go/slack.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	slackgo "github.com/slack-go/slack"

	"github.com/opsnotify/notification-hub/internal/debug"
	"github.com/opsnotify/notification-hub/internal/notify"
)

func init() {
	notify.Register("slack", func(cfg notify.Config) (notify.Provider, error) {
		p, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// API is the subset of *slack.Client used by the provider.
// Tests substitute a fake without a live Slack connection.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackgo.MsgOption) (string, string, error)
}

// Provider posts notifications as chat messages.
type Provider struct {
	api API
}

// NewProvider builds a Provider from the bot token in cfg.
// cfg.APIURL overrides the Web API endpoint (it must end with "/").
func NewProvider(cfg notify.Config) (*Provider, error) {
	if cfg.Token == "" {
		return nil, &notify.ConfigError{Provider: "slack", Field: "bot token"}
	}

	opts := []slackgo.Option{
		slackgo.OptionHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slackgo.OptionAPIURL(cfg.APIURL))
	}
	return NewProviderWithAPI(slackgo.New(cfg.Token, opts...)), nil
}

// NewProviderWithAPI wraps an existing API client.
func NewProviderWithAPI(api API) *Provider {
	return &Provider{api: api}
}

// Name implements notify.Provider.
func (p *Provider) Name() string { return "slack" }

// SendNotification posts message to the channel destination.
// opts.Extra is forwarded as chat.postMessage parameters (see MessageOptions).
// Errors from the Slack API are returned unchanged.
func (p *Provider) SendNotification(ctx context.Context, destination, message string, opts notify.Options) (notify.Result, error) {
	msgOpts, err := MessageOptions(message, opts.Extra)
	if err != nil {
		return nil, err
	}

	channel, ts, err := p.api.PostMessageContext(ctx, destination, msgOpts...)
	if err != nil {
		return nil, err
	}
	debug.Logger().Debug("slack message posted", "channel", channel, "ts", ts)

	return notify.Result{"ok": true, "channel": channel, "ts": ts}, nil
}

// MessageOptions converts message text and pass-through parameters into
// slack-go message options. Recognized keys:
//
//	thread_ts, username, icon_emoji, icon_url, parse   string values
//	reply_broadcast, unfurl_links, unfurl_media,
//	link_names, mrkdwn                                 boolean values
//	blocks, attachments                                JSON arrays
//	metadata                                           JSON object with event_type and event_payload
//
// Any other key is rejected.
func MessageOptions(text string, extra map[string]string) ([]slackgo.MsgOption, error) {
	params := slackgo.NewPostMessageParameters()
	var structured []slackgo.MsgOption

	// Sorted so the first bad key reported is stable.
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := extra[key]
		switch key {
		case "thread_ts":
			params.ThreadTimestamp = value
		case "username":
			params.Username = value
		case "icon_emoji":
			params.IconEmoji = value
		case "icon_url":
			params.IconURL = value
		case "parse":
			params.Parse = value
		case "reply_broadcast", "unfurl_links", "unfurl_media", "link_names", "mrkdwn":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("slack option %s: %w", key, err)
			}
			switch key {
			case "reply_broadcast":
				params.ReplyBroadcast = b
			case "unfurl_links":
				params.UnfurlLinks = b
			case "unfurl_media":
				params.UnfurlMedia = b
			case "link_names":
				if b {
					params.LinkNames = 1
				}
			case "mrkdwn":
				params.Markdown = b
			}
		case "blocks":
			var blocks slackgo.Blocks
			if err := json.Unmarshal([]byte(value), &blocks); err != nil {
				return nil, fmt.Errorf("slack option %s: %w", key, err)
			}
			structured = append(structured, slackgo.MsgOptionBlocks(blocks.BlockSet...))
		case "attachments":
			var attachments []slackgo.Attachment
			if err := json.Unmarshal([]byte(value), &attachments); err != nil {
				return nil, fmt.Errorf("slack option %s: %w", key, err)
			}
			structured = append(structured, slackgo.MsgOptionAttachments(attachments...))
		case "metadata":
			var metadata slackgo.SlackMetadata
			if err := json.Unmarshal([]byte(value), &metadata); err != nil {
				return nil, fmt.Errorf("slack option %s: %w", key, err)
			}
			structured = append(structured, slackgo.MsgOptionMetadata(metadata))
		default:
			return nil, fmt.Errorf("slack: unsupported message option %q", key)
		}
	}

	return append([]slackgo.MsgOption{
		slackgo.MsgOptionText(text, false),
		slackgo.MsgOptionPostMessageParameters(params),
	}, structured...), nil
}
