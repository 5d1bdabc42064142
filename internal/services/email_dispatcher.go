package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/anonto42/notification-engine/internal/models"
)

// EmailDispatcher renders a notification and sends it to the user's address
type EmailDispatcher struct {
	users     UserDirectory
	transport EmailTransport
	timeout   time.Duration
}

// NewEmailDispatcher creates a new email dispatcher. A zero timeout disables the per-attempt bound.
func NewEmailDispatcher(users UserDirectory, transport EmailTransport, timeout time.Duration) *EmailDispatcher {
	return &EmailDispatcher{users: users, transport: transport, timeout: timeout}
}

// Channel returns the channel name
func (d *EmailDispatcher) Channel() string { return models.ChannelEmail }

// Deliver makes exactly one send attempt
func (d *EmailDispatcher) Deliver(ctx context.Context, n *models.Notification) []Outcome {
	to, err := d.users.GetEmail(ctx, n.UserID)
	if err != nil {
		return []Outcome{{Channel: models.ChannelEmail, Err: fmt.Errorf("lookup email address: %w", err)}}
	}

	htmlBody, textBody := renderEmail(n)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.transport.Send(ctx, to, n.Title, htmlBody, textBody); err != nil {
		return []Outcome{{Channel: models.ChannelEmail, Err: err}}
	}
	return []Outcome{{Channel: models.ChannelEmail}}
}

// renderEmail builds the html and plain text bodies. User-supplied text is escaped.
func renderEmail(n *models.Notification) (string, string) {
	var h strings.Builder
	h.WriteString(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222">`)
	fmt.Fprintf(&h, `<h2>%s</h2>`, html.EscapeString(n.Title))
	fmt.Fprintf(&h, `<p>%s</p>`, strings.ReplaceAll(html.EscapeString(n.Message), "\n", "<br>"))
	if n.ActionURL != nil && *n.ActionURL != "" {
		label := "View"
		if n.ActionLabel != nil && *n.ActionLabel != "" {
			label = *n.ActionLabel
		}
		fmt.Fprintf(&h, `<p><a href="%s" style="display:inline-block;padding:10px 16px;background:#2563eb;color:#fff;text-decoration:none;border-radius:4px">%s</a></p>`,
			html.EscapeString(*n.ActionURL), html.EscapeString(label))
	}
	h.WriteString(`</body></html>`)

	var t strings.Builder
	t.WriteString(n.Title)
	t.WriteString("\n\n")
	t.WriteString(n.Message)
	t.WriteString("\n")
	if n.ActionURL != nil && *n.ActionURL != "" {
		label := "View"
		if n.ActionLabel != nil && *n.ActionLabel != "" {
			label = *n.ActionLabel
		}
		fmt.Fprintf(&t, "\n%s: %s\n", label, *n.ActionURL)
	}

	return h.String(), t.String()
}
