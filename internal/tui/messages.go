package tui

import (
	"strings"

	"github.com/diogo/docchat/internal/config"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/render"
)

const (
	userLabel      = "● You"
	assistantLabel = "✦ Assistant"
	pendingText    = "…"
	streamCursor   = "▍"
	retryHint      = "ctrl+r to retry"
)

// renderMessages draws the timeline. Final replies are rendered as Markdown;
// streaming text is shown raw so partial syntax never breaks the layout.
func renderMessages(msgs []models.Message, width int, st styles, md config.MarkdownConfig) string {
	bubbleWidth := width - 6
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var content strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Role == models.RoleUser {
			content.WriteString(st.userLabel.Render(userLabel))
			content.WriteString("\n")
			content.WriteString(st.userBubble.Width(bubbleWidth).Render(msg.Content))
			content.WriteString("\n")
			continue
		}

		content.WriteString(st.assistantLabel.Render(assistantLabel))
		content.WriteString("\n")
		content.WriteString(renderAssistant(msg, bubbleWidth, st, md))
		content.WriteString("\n")
	}
	return content.String()
}

func renderAssistant(msg models.Message, width int, st styles, md config.MarkdownConfig) string {
	switch msg.Lifecycle {
	case models.LifecyclePending:
		return st.assistantBubble.Width(width).Render(st.pending.Render(pendingText))

	case models.LifecycleStreaming:
		return st.assistantBubble.Width(width).Render(msg.Content + st.pending.Render(streamCursor))

	case models.LifecycleError:
		var body strings.Builder
		body.WriteString("⚠ " + msg.Content)
		if msg.Partial != "" {
			body.WriteString("\n\n")
			body.WriteString(st.partial.Render(msg.Partial))
		}
		body.WriteString("\n")
		body.WriteString(st.hint.Render(retryHint))
		return st.errorBubble.Width(width).Render(body.String())

	default:
		opts := render.OptionsFromConfig(md, width-4)
		return st.assistantBubble.Width(width).Render(render.Reply(msg.Content, opts))
	}
}
