package render

import (
	"os"

	"github.com/diogo/docchat/internal/config"
)

// OptionsFromConfig builds render options from the markdown section of the
// user configuration. GLAMOUR_STYLE overrides the configured style.
func OptionsFromConfig(md config.MarkdownConfig, width int) Options {
	opts := DefaultOptions()

	if md.Style != "" {
		opts.Style = md.Style
	}
	opts.EnableEmoji = md.EnableEmoji
	opts.PreserveNewLines = md.PreserveNewLines
	opts.TableWrap = md.TableWrap

	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		opts.Style = style
	}

	if width > 0 {
		opts.Width = width
	}
	return opts
}
