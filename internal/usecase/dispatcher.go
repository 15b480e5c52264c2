package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"BlogWatch/internal/domain"
	"BlogWatch/internal/ports"
)

const (
	// chatDigestLimit caps the character-limited chat channel.
	chatDigestLimit  = 3
	chatTitleLimit   = 80
	chatSummaryLimit = 200
)

// Dispatcher batches newly enriched articles into channel digests. Marking
// is best-effort-and-done: once a pass has run, included articles are marked
// notified regardless of per-channel delivery success.
type Dispatcher struct {
	store  ports.Store
	email  ports.EmailSender
	chat   ports.ChatSender
	logger *slog.Logger
}

// NewDispatcher wires the delivery channels; either sender may be nil when
// its credentials are absent.
func NewDispatcher(store ports.Store, email ports.EmailSender, chat ports.ChatSender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, email: email, chat: chat, logger: log}
}

// Dispatch sends one digest per enabled channel covering all processed,
// not-yet-notified articles and returns how many articles the pass covered.
// Zero eligible articles is a no-op with no transport call.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	articles, err := d.store.ArticlesToNotify(ctx)
	if err != nil {
		return 0, fmt.Errorf("load articles to notify: %w", err)
	}
	if len(articles) == 0 {
		return 0, nil
	}

	settings, err := d.store.Settings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load notification settings: %w", err)
	}

	// Terminal-failure articles carry empty summaries; they are excluded
	// from digest content but still marked notified below.
	var withContent []domain.Article
	for _, article := range articles {
		if article.Summary != "" || article.Insights != "" {
			withContent = append(withContent, article)
		}
	}

	if len(withContent) > 0 {
		if settings.EmailEnabled && settings.EmailAddress != "" && d.email != nil {
			subject := fmt.Sprintf("%d New Articles from Monitored Blogs", len(withContent))
			if err := d.email.Send(ctx, settings.EmailAddress, subject, buildEmailDigest(withContent)); err != nil {
				d.warn("email delivery failed", "error", err)
			} else {
				d.info("email digest sent", "articles", len(withContent))
			}
		}

		if settings.ChatEnabled && settings.ChatNumber != "" && d.chat != nil {
			if err := d.chat.Send(ctx, settings.ChatNumber, buildChatDigest(withContent)); err != nil {
				d.warn("chat delivery failed", "error", err)
			} else {
				d.info("chat digest sent", "articles", min(len(withContent), chatDigestLimit))
			}
		}
	}

	ids := make([]int64, 0, len(articles))
	for _, article := range articles {
		ids = append(ids, article.ID)
	}
	if err := d.store.MarkNotified(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark notified: %w", err)
	}

	return len(articles), nil
}

// buildEmailDigest renders a full HTML document with one block per article.
func buildEmailDigest(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.header { background-color: #007bff; color: white; padding: 20px; text-align: center; }
.article { margin: 20px 0; padding: 15px; border-left: 4px solid #007bff; background-color: #f8f9fa; }
.article-title { font-size: 18px; font-weight: bold; margin-bottom: 10px; }
.article-source { color: #6c757d; font-size: 14px; margin-bottom: 10px; }
.article-summary { margin-bottom: 15px; }
.insights { margin-bottom: 15px; }
.read-more { display: inline-block; background-color: #007bff; color: white; padding: 8px 16px; text-decoration: none; border-radius: 4px; }
.footer { margin-top: 30px; padding: 20px; background-color: #f8f9fa; text-align: center; color: #6c757d; }
</style>
</head>
<body>
<div class="header">
<h1>New Articles Digest</h1>
<p>New articles from your monitored blogs</p>
</div>
`)

	for _, article := range articles {
		summary := article.Summary
		if summary == "" {
			summary = "Summary not available"
		}
		insights := article.Insights
		if insights == "" {
			insights = "Insights not available"
		}

		fmt.Fprintf(&b, `<div class="article">
<div class="article-title">%s</div>
<div class="article-source">Source: %s</div>
<div class="article-summary"><strong>Summary:</strong><br>%s</div>
<div class="insights"><strong>Insights:</strong><br>%s</div>
<a href="%s" class="read-more">Read Full Article</a>
</div>
`,
			html.EscapeString(article.Title),
			html.EscapeString(article.Source),
			htmlBreaks(summary),
			htmlBreaks(insights),
			article.URL)
	}

	b.WriteString(`<div class="footer">
<p>This digest was automatically generated by BlogWatch.</p>
</div>
</body>
</html>
`)
	return b.String()
}

// buildChatDigest renders the character-limited plain-text digest, capped to
// the first articles with a trailing note for the rest.
func buildChatDigest(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString("*New Articles Digest*\n\n")

	limit := min(len(articles), chatDigestLimit)
	for i := 0; i < limit; i++ {
		article := articles[i]
		fmt.Fprintf(&b, "*%d. %s*\n", i+1, truncate(article.Title, chatTitleLimit))
		fmt.Fprintf(&b, "Source: %s\n", article.Source)
		if article.Summary != "" {
			fmt.Fprintf(&b, "%s\n", truncate(article.Summary, chatSummaryLimit))
		}
		fmt.Fprintf(&b, "%s\n\n", article.URL)
	}

	if len(articles) > chatDigestLimit {
		fmt.Fprintf(&b, "... and %d more articles available in your dashboard.", len(articles)-chatDigestLimit)
	}

	return strings.TrimRight(b.String(), "\n")
}

func htmlBreaks(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func (d *Dispatcher) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
