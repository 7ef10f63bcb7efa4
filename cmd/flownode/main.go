// Command flownode runs the connector nodes from the command line: webhook
// message delivery for WeCom group bots, and project/merge-request retrieval
// from GitLab.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kart-io/flownode/pkg/gitlab"
	"github.com/kart-io/flownode/pkg/logger"
	"github.com/kart-io/flownode/pkg/logger/adapters"
	"github.com/kart-io/flownode/pkg/observability"
	"github.com/kart-io/flownode/pkg/params"
	"github.com/kart-io/flownode/pkg/wecom"
	"github.com/kart-io/flownode/pkg/wecom/client"
	wecomerrors "github.com/kart-io/flownode/pkg/wecom/errors"
)

var (
	flagVerbose bool
	flagTimeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "flownode",
		Short:         "Workflow connector nodes for WeCom group bots and GitLab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "mirror buffered logs to stderr")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 60*time.Second, "overall command timeout")

	root.AddCommand(newWecomCmd(), newGitlabCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRunLogger builds the per-run buffered logger, mirrored to zap when
// verbose output is requested. Without verbose output only error entries are
// mirrored, to stderr, so command output stays clean JSON.
func newRunLogger(label string) (*logger.BufferedLogger, func()) {
	opts := logger.DefaultOptions()
	opts.MirrorTo = logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags), logger.Error, "[flownode]")
	cleanup := func() {}
	if flagVerbose {
		zl, err := zap.NewDevelopment()
		if err == nil {
			opts.Level = logger.Debug
			opts.MirrorTo = adapters.NewZapAdapter(zl, logger.Debug)
			cleanup = func() { _ = zl.Sync() }
		}
	}
	return logger.NewBuffered(label, opts), cleanup
}

func newWecomCmd() *cobra.Command {
	var (
		flagWebhookURL     string
		flagMessageType    string
		flagContent        string
		flagMentionUsers   string
		flagMentionMobiles string
		flagImageBase64    string
		flagMediaID        string
		flagRowsFile       string
		flagContinue       bool
		flagMaxRetries     int
	)

	cmd := &cobra.Command{
		Use:   "wecom",
		Short: "WeCom group-bot webhook connector",
	}
	cmd.PersistentFlags().StringVar(&flagWebhookURL, "webhook-url", "", "group-bot webhook URL (or FLOWNODE_WEBHOOK_URL)")

	resolveWebhook := func() (string, error) {
		url := flagWebhookURL
		if url == "" {
			url = os.Getenv("FLOWNODE_WEBHOOK_URL")
		}
		cred, err := params.WebhookCredentialFromMap(map[string]any{"webhook_url": url})
		if err != nil {
			return "", err
		}
		return cred.WebhookURL, nil
	}

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Send a connection test message through the webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveWebhook()
			if err != nil {
				return err
			}
			log, cleanup := newRunLogger("wecom")
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			c := client.New(url, client.DefaultConfig(), log.Child("delivery"), nil)
			defer func() { _ = c.Close() }()
			if !c.TestConnection(ctx) {
				return fmt.Errorf("connection test failed")
			}
			cmd.Println("connection test succeeded")
			return nil
		},
	}

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send messages through the webhook",
		Long: `Send messages through the group-bot webhook.

A single message is built from flags, or a batch is read from --rows, a JSON
file holding an array of input rows. Results are printed as JSON, one result
row per input row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveWebhook()
			if err != nil {
				return err
			}
			rows, err := loadRows(flagRowsFile, params.Row{
				"message_type":      flagMessageType,
				"content":           flagContent,
				"mentioned_users":   flagMentionUsers,
				"mentioned_mobiles": flagMentionMobiles,
				"image_base64":      flagImageBase64,
				"media_id":          flagMediaID,
			})
			if err != nil {
				return err
			}

			log, cleanup := newRunLogger("wecom")
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			telemetry, err := observability.NewTelemetryProvider(telemetryConfig())
			if err != nil {
				return err
			}
			defer func() { _ = telemetry.Shutdown(context.Background()) }()

			cfg := client.DefaultConfig()
			cfg.MaxRetries = flagMaxRetries
			stats := wecomerrors.NewStatistics()
			c := client.New(url, cfg, log.Child("delivery"), stats).WithTelemetry(telemetry)
			defer func() { _ = c.Close() }()

			svc := wecom.NewService(c, log, stats, wecom.Options{ContinueOnFail: flagContinue}).
				WithTelemetry(telemetry)
			results, runErr := svc.Execute(ctx, rows)

			if err := printJSON(cmd, results); err != nil {
				return err
			}
			if flagVerbose {
				if err := printJSON(cmd, stats.Snapshot()); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	sendCmd.Flags().StringVar(&flagMessageType, "type", "text", "message type: text, markdown, image, news, file")
	sendCmd.Flags().StringVar(&flagContent, "content", "", "text or markdown content")
	sendCmd.Flags().StringVar(&flagMentionUsers, "mention-users", "", "comma-separated user IDs to mention")
	sendCmd.Flags().StringVar(&flagMentionMobiles, "mention-mobiles", "", "comma-separated phone numbers to mention")
	sendCmd.Flags().StringVar(&flagImageBase64, "image-base64", "", "base64-encoded image payload")
	sendCmd.Flags().StringVar(&flagMediaID, "media-id", "", "uploaded media ID for file messages")
	sendCmd.Flags().StringVar(&flagRowsFile, "rows", "", "JSON file with an array of input rows")
	sendCmd.Flags().BoolVar(&flagContinue, "continue-on-fail", false, "keep processing rows after a failure")
	sendCmd.Flags().IntVar(&flagMaxRetries, "max-retries", 3, "retries per delivery after the first attempt")

	cmd.AddCommand(testCmd, sendCmd)
	return cmd
}

func newGitlabCmd() *cobra.Command {
	var (
		flagDomain  string
		flagToken   string
		flagState   string
		flagPerPage int
		flagPage    int
	)

	cmd := &cobra.Command{
		Use:   "gitlab",
		Short: "GitLab source-control connector",
	}
	cmd.PersistentFlags().StringVar(&flagDomain, "domain", "", "GitLab instance URL (default gitlab.com)")
	cmd.PersistentFlags().StringVar(&flagToken, "token", "", "personal access token (or FLOWNODE_GITLAB_TOKEN)")

	newGitlabClient := func() (*gitlab.Client, func(), error) {
		token := flagToken
		if token == "" {
			token = os.Getenv("FLOWNODE_GITLAB_TOKEN")
		}
		cred, err := params.GitLabCredentialFromMap(map[string]any{
			"domain":       flagDomain,
			"access_token": token,
		})
		if err != nil {
			return nil, nil, err
		}
		log, logCleanup := newRunLogger("gitlab")
		telemetry, err := observability.NewTelemetryProvider(telemetryConfig())
		if err != nil {
			logCleanup()
			return nil, nil, err
		}
		cleanup := func() {
			_ = telemetry.Shutdown(context.Background())
			logCleanup()
		}
		return gitlab.NewClient(cred, log).WithTelemetry(telemetry), cleanup, nil
	}

	projectCmd := &cobra.Command{
		Use:   "project <id-or-path>",
		Short: "Retrieve one project by ID or namespace path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := newGitlabClient()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			project, err := c.GetProject(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, project)
		},
	}

	mrsCmd := &cobra.Command{
		Use:   "mrs <project-id-or-path>",
		Short: "List merge requests of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := newGitlabClient()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			mrs, err := c.ListMergeRequests(ctx, args[0], gitlab.ListMergeRequestsOptions{
				State:   flagState,
				PerPage: flagPerPage,
				Page:    flagPage,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, mrs)
		},
	}
	mrsCmd.Flags().StringVar(&flagState, "state", "", "filter by state: opened, closed, locked, merged, all")
	mrsCmd.Flags().IntVar(&flagPerPage, "per-page", 0, "results per page")
	mrsCmd.Flags().IntVar(&flagPage, "page", 0, "page number")

	mrCmd := &cobra.Command{
		Use:   "mr <project-id-or-path> <iid>",
		Short: "Retrieve one merge request by IID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var iid int
			if _, err := fmt.Sscanf(args[1], "%d", &iid); err != nil {
				return fmt.Errorf("invalid merge request iid %q", args[1])
			}
			c, cleanup, err := newGitlabClient()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			mr, err := c.GetMergeRequest(ctx, args[0], iid)
			if err != nil {
				return err
			}
			return printJSON(cmd, mr)
		},
	}

	cmd.AddCommand(projectCmd, mrsCmd, mrCmd)
	return cmd
}

// loadRows reads a batch of rows from file, or wraps the flag-built row when
// no file is given.
func loadRows(file string, single params.Row) ([]params.Row, error) {
	if file == "" {
		return []params.Row{single}, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows file: %w", err)
	}
	var rows []params.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows file: %w", err)
	}
	return rows, nil
}

// telemetryConfig enables telemetry when an OTLP endpoint is configured in
// the environment.
func telemetryConfig() observability.Config {
	cfg := observability.DefaultConfig()
	if endpoint := os.Getenv("FLOWNODE_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Enabled = true
		cfg.OTLPEndpoint = endpoint
	}
	return cfg
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
