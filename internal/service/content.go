package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ContentRenderer turns newsletter content into the HTML body that is sent.
// Markdown is rendered first; the result is always sanitized.
type ContentRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewContentRenderer() *ContentRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(false)
	return &ContentRenderer{md: md, policy: policy}
}

func (r *ContentRenderer) Render(issue domain.NewsletterIssue) (string, error) {
	content := issue.Content
	switch issue.Format {
	case domain.FormatHTML, "":
	case domain.FormatMarkdown:
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(content), &buf); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		content = buf.String()
	default:
		return "", internal_errors.Validation(fmt.Sprintf("Unknown content format %q", issue.Format))
	}
	return strings.TrimSpace(r.policy.Sanitize(content)), nil
}
