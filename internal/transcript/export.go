// Package transcript exports a conversation to Markdown or JSON files.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diogo/docchat/internal/models"
)

// Format represents the format for exporting conversations
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat maps a file extension or format name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// Transcript is a point-in-time copy of a conversation
type Transcript struct {
	Server     string
	SessionID  string
	ExportedAt time.Time
	Messages   []models.Message
}

// exportable drops assistant messages that never received content
func (t Transcript) exportable() []models.Message {
	out := make([]models.Message, 0, len(t.Messages))
	for _, msg := range t.Messages {
		if msg.Lifecycle.InFlight() && msg.Content == "" {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Markdown renders the transcript as a Markdown document
func Markdown(t Transcript) string {
	msgs := t.exportable()

	var sb strings.Builder

	// Header
	sb.WriteString("# docchat conversation\n\n")

	// Metadata
	if t.Server != "" {
		sb.WriteString("**Server:** ")
		sb.WriteString(t.Server)
		sb.WriteString("\n")
	}
	if t.SessionID != "" {
		sb.WriteString("**Session:** ")
		sb.WriteString(t.SessionID)
		sb.WriteString("\n")
	}
	sb.WriteString("**Exported:** ")
	sb.WriteString(t.ExportedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Messages:** %d", len(msgs)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range msgs {
		role := "You"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		sb.WriteString("\n\n")

		if msg.Lifecycle == models.LifecycleError {
			sb.WriteString("> ⚠ ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
			if msg.Partial != "" {
				sb.WriteString("\n<details>\n<summary>Partial answer</summary>\n\n")
				sb.WriteString(msg.Partial)
				sb.WriteString("\n\n</details>\n")
			}
		} else {
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}

		// Separator between messages (except last)
		if i < len(msgs)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

type exportMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Status  string `json:"status"`
	Partial string `json:"partial,omitempty"`
}

type exportTranscript struct {
	Server     string          `json:"server,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []exportMessage `json:"messages"`
}

// JSON renders the transcript as indented JSON
func JSON(t Transcript) ([]byte, error) {
	msgs := t.exportable()
	export := exportTranscript{
		Server:     t.Server,
		SessionID:  t.SessionID,
		ExportedAt: t.ExportedAt,
		Messages:   make([]exportMessage, len(msgs)),
	}
	for i, msg := range msgs {
		export.Messages[i] = exportMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
			Status:  string(msg.Lifecycle),
			Partial: msg.Partial,
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// DefaultPath returns a timestamped file name inside dir
func DefaultPath(dir string, format Format, now time.Time) string {
	ext := ".md"
	if format == FormatJSON {
		ext = ".json"
	}
	return filepath.Join(dir, "docchat-"+now.Format("20060102-150405")+ext)
}

// Write exports t to path. The format follows the file extension.
func Write(path string, t Transcript) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = JSON(t)
		if err != nil {
			return fmt.Errorf("failed to encode transcript: %w", err)
		}
	default:
		data = []byte(Markdown(t))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
