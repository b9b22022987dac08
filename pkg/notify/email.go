// Package notify sends import failure emails through Resend.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/repository"
)

// Config holds the Resend settings. An empty APIKey disables sending.
type Config struct {
	APIKey    string
	FromEmail string
	To        []string
	BaseURL   string
}

// EmailNotifier emails the configured recipients when an import fails.
type EmailNotifier struct {
	client *resend.Client
	from   string
	to     []string
	logger *slog.Logger
}

// NewEmailNotifier returns nil when cfg has no API key or recipients.
func NewEmailNotifier(cfg Config, logger *slog.Logger) *EmailNotifier {
	if cfg.APIKey == "" || len(cfg.To) == 0 {
		return nil
	}

	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		if u, err := client.BaseURL.Parse(cfg.BaseURL); err == nil {
			client.BaseURL = u
		}
	}

	from := cfg.FromEmail
	if from == "" {
		from = "Sales Analytics <imports@sales-analytics.local>"
	}

	return &EmailNotifier{client: client, from: from, to: cfg.To, logger: logger}
}

// ImportFailed sends one email describing the failed import.
func (n *EmailNotifier) ImportFailed(ctx context.Context, job *repository.ImportJob, message string) error {
	subject := fmt.Sprintf("Import #%d failed: %s", job.ID, job.OriginalName)

	body := fmt.Sprintf(`<p>The import <strong>%s</strong> (data source %d) failed.</p>
<p>%s</p>`,
		html.EscapeString(job.OriginalName),
		job.DataSourceID,
		html.EscapeString(message),
	)

	resp, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: subject,
		Html:    body,
		Text:    strings.Join([]string{subject, message}, "\n\n"),
		Tags:    []resend.Tag{{Name: "category", Value: "import_failed"}},
	})
	if err != nil {
		return fmt.Errorf("failed to send import failure email: %w", err)
	}

	n.logger.Info("import failure email sent",
		slog.Int64("import_id", job.ID),
		slog.String("email_id", resp.Id),
	)
	return nil
}
