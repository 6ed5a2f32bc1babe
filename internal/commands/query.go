package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/diogo/docchat/internal/api"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/render"
	"github.com/diogo/docchat/internal/session"
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true).
				MarginBottom(0)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	partialStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorTextDim).
			BorderLeft(true).
			Foreground(colorTextDim).
			PaddingLeft(1).
			MarginLeft(1).
			Italic(true)
)

// deltaWriter prints the assistant reply as it grows. Snapshots carry the
// cumulative text, so only the unseen suffix is written.
type deltaWriter struct {
	w       io.Writer
	id      string
	printed int
}

func (d *deltaWriter) observe(s session.Snapshot) {
	if len(s.Messages) == 0 {
		return
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != models.RoleAssistant {
		return
	}
	if last.Lifecycle != models.LifecycleStreaming && last.Lifecycle != models.LifecycleFinal {
		return
	}
	if last.ID != d.id {
		d.id = last.ID
		d.printed = 0
	}
	if len(last.Content) <= d.printed {
		return
	}
	fmt.Fprint(d.w, last.Content[d.printed:])
	d.printed = len(last.Content)
}

// runQuery sends one question and outputs the reply.
// On a terminal the reply is rendered once complete; with --raw or when
// stdout is piped, text is written as it streams.
func runQuery(ctx context.Context, deps *Dependencies, opts *rootOptions, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	cfg := opts.cfg

	client, err := deps.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	decorated := !opts.raw && deps.IsTTY()
	streamOut := !decorated && opts.output == ""

	var ctrlOpts []session.Option
	if opts.session != "" {
		ctrlOpts = append(ctrlOpts, session.WithSessionID(opts.session))
	}
	var out *deltaWriter
	if streamOut {
		out = &deltaWriter{w: deps.Stdout}
		ctrlOpts = append(ctrlOpts, session.WithObserver(out.observe))
	}
	controller := session.New(&api.Transport{Client: client, Buffered: !cfg.Stream}, ctrlOpts...)

	if cfg.Verbose {
		fmt.Fprintf(deps.Stderr, "[verbose] Server: %s (stream=%t)\n", client.BaseURL(), cfg.Stream)
	}

	var spin *spinner
	if decorated {
		spin = newSpinner(deps.Stderr, "Searching the documents")
		spin.start()
	}

	// Track request timing for verbose output
	startTime := time.Now()
	err = controller.Send(ctx, prompt)
	requestDuration := time.Since(startTime)

	if cfg.Verbose {
		defer func(sessionID string) {
			fmt.Fprintf(deps.Stderr, "[verbose] Session: %s\n", sessionID)
			fmt.Fprintf(deps.Stderr, "[verbose] Request took %s\n", requestDuration.Round(time.Millisecond))
		}(controller.SessionID())
	}

	if err != nil {
		if spin != nil {
			spin.stopWithError()
		}
		if out != nil && out.printed > 0 {
			fmt.Fprintln(deps.Stdout)
		}
		fmt.Fprintln(deps.Stderr, formatErrorMessage(err, "Request failed"))
		return reported(fmt.Errorf("request failed: %w", err))
	}
	if spin != nil {
		spin.stopWithSuccess("Done")
	}

	reply, ok := controller.LastReply()
	if !ok {
		return fmt.Errorf("no reply received")
	}
	text := reply.Content

	if streamOut {
		if deps.IsTTY() && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(deps.Stdout)
		}
	}

	if opts.copy || cfg.CopyToClipboard {
		copyReply(deps, text, decorated)
	}

	// Output to file if specified
	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if decorated {
			successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Response saved to %s", opts.output),
			)
			fmt.Fprintln(deps.Stderr, successMsg)
		}
		return nil
	}

	if streamOut {
		return nil
	}

	// Decorated output mode (TTY)
	fmt.Fprintln(deps.Stderr)
	fmt.Fprintln(deps.Stdout, renderReply(text, deps.TerminalWidth(), opts))
	return nil
}

// renderReply wraps the markdown-rendered reply in the assistant bubble
func renderReply(text string, termWidth int, opts *rootOptions) string {
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	rendered := render.Reply(text, render.OptionsFromConfig(opts.cfg.Markdown, contentWidth))

	label := assistantLabelStyle.Render("✦ Assistant")
	bubble := assistantBubbleStyle.Width(bubbleWidth).Render(rendered)
	return label + "\n" + bubble
}

// copyReply copies text to the clipboard. A failure only warns.
func copyReply(deps *Dependencies, text string, decorated bool) {
	if err := deps.CopyText(text); err != nil {
		log.Warn().Err(err).Str("component", "commands").Msg("clipboard copy failed")
		warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
			fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
		)
		fmt.Fprintln(deps.Stderr, warnMsg)
		return
	}
	if decorated {
		clipMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard")
		fmt.Fprintln(deps.Stderr, clipMsg)
	}
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, action string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	headline := err.Error()
	structured := apierrors.IsTransportError(err) || apierrors.IsStreamError(err) || apierrors.IsParseError(err)
	switch {
	case structured:
		headline = apierrors.UserMessage(err)
	case errors.Is(err, context.Canceled):
		headline = models.CanceledMessage
	}

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", action, headline)))
	if structured {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Cause: %v", err)))
	}

	// Extract additional context from structured errors
	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	if partial := apierrors.PartialText(err); partial != "" {
		sb.WriteString("\n")
		sb.WriteString(partialStyle.Render(partial))
	}

	// Provide helpful hints based on error type
	switch status := apierrors.GetHTTPStatus(err); {
	case status >= 500:
		sb.WriteString(dimStyle.Render("\n  Hint: The server failed to answer. Try again in a moment"))
	case status >= 400:
		sb.WriteString(dimStyle.Render("\n  Hint: The server rejected the request. Check the server URL"))
	case apierrors.IsTransportError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check that the server is running ('docchat status')"))
	case apierrors.IsStreamError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The answer was interrupted. Ask again to retry"))
	case apierrors.IsParseError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The server answered in an unexpected format. Check the server version"))
	}

	return sb.String()
}
