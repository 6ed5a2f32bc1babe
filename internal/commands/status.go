package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/render"
)

var (
	statusKeyStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Width(12)
	statusOKStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	statusDimStyle = lipgloss.NewStyle().Foreground(colorTextDim)
)

// NewStatusCmd creates the status command
func NewStatusCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health and knowledge base status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(deps, opts, func(client api.ClientInterface) error {
				return runStatus(cmd.Context(), deps, opts, client)
			})
		},
	}
}

// NewKBCmd creates the knowledge base command
func NewKBCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "kb",
		Aliases: []string{"knowledge-base"},
		Short:   "Show the indexed documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(deps, opts, func(client api.ClientInterface) error {
				kb, err := client.KnowledgeBase(cmd.Context())
				if err != nil {
					fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Knowledge base unavailable"))
					return reported(fmt.Errorf("knowledge base: %w", err))
				}
				writeKnowledgeBase(deps.Stdout, kb, deps.TerminalWidth(), opts)
				return nil
			})
		},
	}
}

// NewReindexCmd creates the reindex command
func NewReindexCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Ask the server to rebuild the document index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(deps, opts, func(client api.ClientInterface) error {
				result, err := client.Reindex(cmd.Context())
				if err != nil {
					fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Reindex failed"))
					return reported(fmt.Errorf("reindex: %w", err))
				}
				fmt.Fprintln(deps.Stdout, statusOKStyle.Render("✓ Reindex "+result.Status))
				return nil
			})
		},
	}
}

// withClient creates a client for the resolved config and closes it after fn
func withClient(deps *Dependencies, opts *rootOptions, fn func(client api.ClientInterface) error) error {
	client, err := deps.NewClient(opts.cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()
	return fn(client)
}

// runStatus fetches health and knowledge base concurrently
func runStatus(ctx context.Context, deps *Dependencies, opts *rootOptions, client api.ClientInterface) error {
	var (
		health *models.HealthStatus
		kb     *models.KnowledgeBaseStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		health, err = client.Health(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		kb, err = client.KnowledgeBase(gctx)
		return err
	})

	fmt.Fprintln(deps.Stdout, statusKeyStyle.Render("Server")+client.BaseURL())

	if err := g.Wait(); err != nil {
		fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Status unavailable"))
		return reported(fmt.Errorf("status: %w", err))
	}

	state := health.Status
	if state == "" {
		state = "ok"
	}
	fmt.Fprintln(deps.Stdout, statusKeyStyle.Render("Health")+statusOKStyle.Render("✓ "+state))
	if health.StartupIndexing {
		fmt.Fprintln(deps.Stdout, statusKeyStyle.Render("Indexing")+"in progress")
	}

	writeKnowledgeBase(deps.Stdout, kb, deps.TerminalWidth(), opts)
	return nil
}

// writeKnowledgeBase prints the document count, last update and the
// server-provided summary
func writeKnowledgeBase(w io.Writer, kb *models.KnowledgeBaseStatus, width int, opts *rootOptions) {
	fmt.Fprintln(w, statusKeyStyle.Render("Documents")+fmt.Sprintf("%d PDF", kb.PDFCount))

	updated := statusDimStyle.Render("never")
	if kb.LatestUpdate != nil {
		updated = kb.LatestUpdate.Format("2006-01-02 15:04:05")
	}
	fmt.Fprintln(w, statusKeyStyle.Render("Updated")+updated)

	if summary := strings.TrimSpace(kb.StatusMarkdown); summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, render.Reply(summary, render.OptionsFromConfig(opts.cfg.Markdown, width)))
	}
}
