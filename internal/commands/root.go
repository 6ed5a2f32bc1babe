// Package commands provides CLI commands for docchat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/logging"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootOptions holds the flags shared by the root command and its subcommands
type rootOptions struct {
	// Global flags
	server   string
	session  string
	noStream bool
	verbose  bool
	logLevel string

	// Query flags
	output string
	file   string
	raw    bool
	copy   bool

	// Resolved in PersistentPreRunE
	cfg       config.Config
	logCloser io.Closer
}

// reportedError marks an error that was already printed for the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	return &reportedError{err: err}
}

// NewRootCmd creates the base command with all subcommands attached
func NewRootCmd(deps *Dependencies) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "docchat [question]",
		Short: "Terminal client for the document chat assistant",
		Long: `docchat asks questions to a document-grounded chat assistant. Answers are
streamed from the server as they are generated and rendered as Markdown.

Examples:
  docchat chat                               Start interactive chat
  docchat "Combien de jours de congé ?"      Ask a single question
  docchat -f question.md                     Read the question from a file
  cat question.md | docchat --raw            Read from stdin, print raw text
  docchat "Résumé du règlement" -o reply.md  Save the answer to a file
  docchat status                             Check server health and knowledge base`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd, deps)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logCloser != nil {
				return opts.logCloser.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for version flag
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "docchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps, opts, args)
			if err != nil {
				return err
			}
			if !ok {
				// No input - show help
				return cmd.Help()
			}
			return runQuery(cmd.Context(), deps, opts, prompt)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "Server URL (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.session, "session", "s", "", "Continue an existing server conversation")
	cmd.PersistentFlags().BoolVar(&opts.noStream, "no-stream", false, "Fetch whole replies instead of streaming")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Print session id and timings on stderr")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error, disabled)")

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read question from file")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the raw reply as it streams, without decoration")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the reply to the clipboard")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	// Add subcommands
	cmd.AddCommand(NewChatCmd(deps, opts))
	cmd.AddCommand(NewConfigCmd(deps))
	cmd.AddCommand(NewStatusCmd(deps, opts))
	cmd.AddCommand(NewKBCmd(deps, opts))
	cmd.AddCommand(NewReindexCmd(deps, opts))

	return cmd
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(NewDependencies())

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var done *reportedError
		if !errors.As(err, &done) {
			fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		}
		stop()
		os.Exit(1)
	}
}

// setup resolves the effective configuration and configures logging
func (o *rootOptions) setup(cmd *cobra.Command, deps *Dependencies) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		// LoadConfig falls back to defaults on a broken file
		fmt.Fprintf(deps.Stderr, "Warning: %v\n", err)
	}

	if o.server != "" {
		cfg.ServerURL = o.server
	}
	if o.noStream {
		cfg.Stream = false
	}
	if o.verbose {
		cfg.Verbose = true
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	o.cfg = cfg

	logOpts := logging.Options{Level: cfg.LogLevel, Writer: deps.Stderr}
	if cmd.Name() == "chat" {
		// The TUI owns the terminal, so logs go to a file.
		path, err := config.GetLogPath(cfg)
		if err != nil {
			return fmt.Errorf("failed to resolve log file: %w", err)
		}
		logOpts.File = path
	}

	closer, err := logging.Setup(logOpts)
	if err != nil {
		return err
	}
	o.logCloser = closer

	log.Debug().
		Str("component", "commands").
		Str("command", cmd.Name()).
		Str("server", cfg.ServerURL).
		Bool("stream", cfg.Stream).
		Msg("configuration resolved")
	return nil
}

// readPrompt returns the question from --file, stdin or the positional
// argument, in that order
func readPrompt(deps *Dependencies, opts *rootOptions, args []string) (string, bool, error) {
	// Check for file input
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	// Check for stdin input
	if deps.Stdin != nil {
		stat, err := deps.Stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 && len(args) == 0 {
			data, err := io.ReadAll(deps.Stdin)
			if err != nil {
				return "", false, fmt.Errorf("failed to read stdin: %w", err)
			}
			return string(data), true, nil
		}
	}

	// Check for positional argument
	if len(args) > 0 {
		return args[0], true, nil
	}

	return "", false, nil
}
