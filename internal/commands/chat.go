package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the document assistant.

The server keeps the conversation context across messages. Commands:
  /new      start a new conversation (also Ctrl+N)
  /retry    ask the last question again (also Ctrl+R)
  /copy     copy the last reply to the clipboard (also Ctrl+Y)
  /kb       show the knowledge base status
  /reindex  rebuild the document index
  /save     save the conversation as Markdown or JSON (/save [path])
Type 'exit', 'quit', or press Ctrl+C to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, opts)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *rootOptions) error {
	cfg := opts.cfg

	client, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	// Check the server before taking over the terminal
	spin := newSpinner(deps.Stderr, "Connecting to "+client.BaseURL())
	spin.start()
	health, err := client.Health(cmd.Context())
	if err != nil {
		spin.stopWithError()
		fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Server unreachable"))
		return reported(fmt.Errorf("server unreachable: %w", err))
	}
	if health.StartupIndexing {
		spin.stopWithSuccess("Connected (documents are still being indexed)")
	} else {
		spin.stopWithSuccess("Connected")
	}

	var exportDir string
	if dir, err := config.GetConfigDir(); err == nil {
		exportDir = filepath.Join(dir, "exports")
	}

	return deps.TUI.RunChat(cmd.Context(), client, tui.Options{
		Buffered:  !cfg.Stream,
		SessionID: opts.session,
		Theme:     cfg.TUITheme,
		Markdown:  cfg.Markdown,
		ExportDir: exportDir,
	})
}
