package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsnotify/notification-hub/internal/config"
	"github.com/opsnotify/notification-hub/internal/intervention"
	"github.com/opsnotify/notification-hub/internal/jira"
	"github.com/opsnotify/notification-hub/internal/notify"
	"github.com/opsnotify/notification-hub/internal/secrets"
	"github.com/opsnotify/notification-hub/internal/statusmap"
	"github.com/opsnotify/notification-hub/internal/telemetry"
)

// jiraFlags are the connection flags shared by every jira subcommand.
type jiraFlags struct {
	server     string
	user       string
	token      string
	authMethod string
}

func (a *app) newJiraCmd() *cobra.Command {
	f := &jiraFlags{}
	cmd := &cobra.Command{
		Use:   "jira",
		Short: "Jira issue operations",
		Args:  cobra.NoArgs,
		RunE:  requireSubcommand,
		Long: `Create, update, delete and transition Jira issues.

Configuration:
  jira.server, jira.user, jira.token, jira.auth-method (basic|token)
  NHUB_JIRA_SERVER, NHUB_JIRA_USER, NHUB_JIRA_TOKEN, NHUB_JIRA_AUTH_METHOD

The token falls back to <secrets-dir>/jira_token and then the OS keyring.

Examples:
  nhub jira --server https://jira.example.com --user bot@example.com \
    create --project OPS --summary "Database failover" \
    --description-data '{"id":"42","description":"Failover to replica"}'
  nhub jira transition --key OPS-12 --status Done
  nhub jira map-status --status blocked`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.server, "server", "", "Jira server URL")
	pf.StringVar(&f.user, "user", "", "Jira username/email (basic auth)")
	pf.StringVar(&f.token, "token", "", "Jira API token (default: secrets-dir/jira_token, keyring)")
	pf.StringVar(&f.authMethod, "auth-method", "", "Authentication method: basic or token (default basic)")

	cmd.AddCommand(
		a.newJiraCreateCmd(f),
		a.newJiraUpdateCmd(f),
		a.newJiraDeleteCmd(f),
		a.newJiraTransitionCmd(f),
		a.newJiraFindTransitionCmd(f),
		a.newJiraTransitionsCmd(f),
		a.newJiraGetCmd(f),
		a.newJiraMapStatusCmd(),
		a.newJiraFormatCmd(),
	)
	return cmd
}

// jiraProvider builds a provider from config, overridden by any flag the
// user set explicitly.
func jiraProvider(cmd *cobra.Command, f *jiraFlags) (*jira.Provider, error) {
	cfg := config.ProviderConfig("jira")
	if cmd.Flags().Changed("server") {
		cfg.Server = f.server
	}
	if cmd.Flags().Changed("user") {
		cfg.User = f.user
	}
	if cmd.Flags().Changed("token") {
		cfg.Token = f.token
	}
	if cmd.Flags().Changed("auth-method") {
		cfg.AuthMethod = f.authMethod
	}

	token, err := secretLoader().Lookup(secrets.JiraToken, cfg.Token)
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return nil, err
	}
	cfg.Token = token

	return jira.NewProvider(cfg)
}

// descriptionFlags select a raw description or one rendered from an
// intervention record.
type descriptionFlags struct {
	description string
	data        string
	appURL      string
	id          string
}

func (d *descriptionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.description, "description", "", "Raw description (wiki markup)")
	cmd.Flags().StringVar(&d.data, "description-data", "", "Intervention record as JSON; rendered into the description")
	cmd.Flags().StringVar(&d.appURL, "app-url", "", "Application base URL for record links (config: app-url)")
	cmd.Flags().StringVar(&d.id, "id", "", "Intervention ID (overrides the record's id)")
}

// resolve returns the description to send. --description-data wins over
// --description when both are set.
func (d *descriptionFlags) resolve(cmd *cobra.Command) (string, error) {
	if d.data == "" {
		return d.description, nil
	}
	rec, err := intervention.ParseRecord([]byte(d.data))
	if err != nil {
		return "", err
	}
	if d.id != "" {
		rec.ID = d.id
	}
	appURL := d.appURL
	if !cmd.Flags().Changed("app-url") {
		appURL = config.GetString("app-url")
	}
	return intervention.FormatDescription(rec, appURL), nil
}

func (a *app) newJiraCreateCmd(f *jiraFlags) *cobra.Command {
	var (
		project, summary, issueType string
		desc                        descriptionFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			description, err := desc.resolve(cmd)
			if err != nil {
				return err
			}
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}
			res, err := telemetry.WrapProvider(p).SendNotification(cmd.Context(), project, summary, notify.Options{
				Description: description,
				IssueType:   issueType,
			})
			if err != nil {
				return err
			}
			return outputJSON(a.out, res)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project key")
	cmd.Flags().StringVar(&summary, "summary", "", "Issue summary")
	cmd.Flags().StringVar(&issueType, "type", jira.DefaultIssueType, "Issue type")
	desc.register(cmd)
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func (a *app) newJiraUpdateCmd(f *jiraFlags) *cobra.Command {
	var (
		key, summary string
		desc         descriptionFlags
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an issue's summary and/or description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			description, err := desc.resolve(cmd)
			if err != nil {
				return err
			}
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}

			issueKey := jira.ExtractKey(key)
			fields := map[string]interface{}{}
			if summary != "" {
				fields["summary"] = summary
			}
			if description != "" {
				fields["description"] = description
			}
			if len(fields) > 0 {
				if err := p.UpdateIssue(cmd.Context(), issueKey, fields); err != nil {
					return err
				}
			}
			return outputJSON(a.out, map[string]string{"status": "success", "key": issueKey})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key or browse URL")
	cmd.Flags().StringVar(&summary, "summary", "", "New summary")
	desc.register(cmd)
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (a *app) newJiraDeleteCmd(f *jiraFlags) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}
			issueKey := jira.ExtractKey(key)
			if err := p.DeleteIssue(cmd.Context(), issueKey); err != nil {
				return err
			}
			return outputJSON(a.out, map[string]string{"status": "success", "key": issueKey})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key or browse URL")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (a *app) newJiraTransitionCmd(f *jiraFlags) *cobra.Command {
	var key, transitionID, status string
	cmd := &cobra.Command{
		Use:   "transition",
		Short: "Move an issue through its workflow",
		Long: `Apply a transition by id, or look up the transition that leads to
the given status name (case-insensitive).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if transitionID == "" && status == "" {
				return errors.New("Either --id or --status must be provided")
			}
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}

			issueKey := jira.ExtractKey(key)
			id := transitionID
			if id == "" {
				var found bool
				id, found, err = p.TransitionIDForStatus(cmd.Context(), issueKey, status)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("No transition found for status '%s'", status)
				}
			}

			if err := p.TransitionIssue(cmd.Context(), issueKey, id); err != nil {
				return err
			}
			return outputJSON(a.out, map[string]string{"status": "success", "key": issueKey, "transition_id": id})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key or browse URL")
	cmd.Flags().StringVar(&transitionID, "id", "", "Transition ID")
	cmd.Flags().StringVar(&status, "status", "", "Target status name")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (a *app) newJiraFindTransitionCmd(f *jiraFlags) *cobra.Command {
	var key, status string
	cmd := &cobra.Command{
		Use:   "find-transition",
		Short: "Print the transition ID leading to a status (null when none)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}
			id, found, err := p.TransitionIDForStatus(cmd.Context(), jira.ExtractKey(key), status)
			if err != nil {
				return err
			}
			var out interface{}
			if found {
				out = id
			}
			return outputJSON(a.out, map[string]interface{}{"transition_id": out})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key or browse URL")
	cmd.Flags().StringVar(&status, "status", "", "Target status name")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func (a *app) newJiraTransitionsCmd(f *jiraFlags) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "List the transitions currently available on an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}
			issueKey := jira.ExtractKey(key)
			transitions, err := p.Transitions(cmd.Context(), issueKey)
			if err != nil {
				return err
			}
			list := make([]map[string]string, 0, len(transitions))
			for _, t := range transitions {
				list = append(list, map[string]string{"id": t.ID, "name": t.Name, "to": t.To.Name})
			}
			return outputJSON(a.out, map[string]interface{}{"key": issueKey, "transitions": list})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key or browse URL")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (a *app) newJiraGetCmd(f *jiraFlags) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show an issue's key, summary and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := jiraProvider(cmd, f)
			if err != nil {
				return err
			}
			issue, err := p.GetIssue(cmd.Context(), jira.ExtractKey(key))
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"key":     issue.Key,
				"id":      issue.ID,
				"self":    issue.Self,
				"url":     jira.BrowseURL(p.Client().URL, issue.Key),
				"summary": issue.Fields.Summary,
				"status":  issue.StatusName(),
			}
			if issue.Fields.IssueType != nil {
				out["type"] = issue.Fields.IssueType.Name
			}
			if !issue.UpdatedAt().IsZero() {
				out["updated"] = issue.UpdatedAt()
			}
			return outputJSON(a.out, out)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Issue key or browse URL")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (a *app) newJiraMapStatusCmd() *cobra.Command {
	var status, file string
	cmd := &cobra.Command{
		Use:   "map-status",
		Short: "Translate an internal status label into a Jira status name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("file") {
				file = config.GetString("status-map")
			}
			return outputJSON(a.out, map[string]string{"status": statusmap.MapStatus(status, file)})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Internal status label")
	cmd.Flags().StringVar(&file, "file", "", "Status map file: JSON, YAML or TOML (config: status-map)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func (a *app) newJiraFormatCmd() *cobra.Command {
	var desc descriptionFlags
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render an intervention record as a Jira wiki-markup description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(desc.data) == "" {
				return errors.New("--description-data must be a JSON object")
			}
			description, err := desc.resolve(cmd)
			if err != nil {
				return err
			}
			return outputJSON(a.out, map[string]string{"description": description})
		},
	}
	cmd.Flags().StringVar(&desc.data, "description-data", "", "Intervention record as JSON")
	cmd.Flags().StringVar(&desc.appURL, "app-url", "", "Application base URL (config: app-url)")
	cmd.Flags().StringVar(&desc.id, "id", "", "Intervention ID (overrides the record's id)")
	_ = cmd.MarkFlagRequired("description-data")
	return cmd
}
