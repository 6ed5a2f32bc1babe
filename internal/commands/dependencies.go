package commands

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, client api.ClientInterface, opts tui.Options) error
}

// ClientFactory builds an API client from the effective configuration.
type ClientFactory func(cfg config.Config) (api.ClientInterface, error)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewClient creates the backend client.
	NewClient ClientFactory

	// LoadConfig reads the configuration file and environment.
	LoadConfig func() (config.Config, error)

	// LoadConfigFile reads the configuration file alone, for editing.
	LoadConfigFile func() (config.Config, error)

	// SaveConfig persists the configuration file.
	SaveConfig func(cfg config.Config) error

	// TUI is the terminal user interface.
	TUI TUIInterface

	// Terminal I/O
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer

	// IsTTY reports whether stdout is an interactive terminal.
	IsTTY func() bool

	// TerminalWidth returns the width used for rendered output.
	TerminalWidth func() int

	// CopyText writes to the system clipboard.
	CopyText func(text string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, client api.ClientInterface, opts tui.Options) error {
	return tui.RunChat(ctx, client, opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewClient:      newAPIClient,
		LoadConfig:     config.LoadConfig,
		LoadConfigFile: config.LoadFile,
		SaveConfig:     config.SaveConfig,
		TUI:            &DefaultTUI{},
		Stdin:          os.Stdin,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		IsTTY:          isStdoutTTY,
		TerminalWidth:  getTerminalWidth,
		CopyText:       clipboard.WriteAll,
	}
}

// newAPIClient creates the tls-client backed API client
func newAPIClient(cfg config.Config) (api.ClientInterface, error) {
	client, err := api.NewClient(
		api.WithBaseURL(cfg.ServerURL),
		api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		api.WithProxy(cfg.Proxy),
		api.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
