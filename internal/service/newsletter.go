package service

import (
	"context"
	"strings"
	"sync"

	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
	"github.com/itchan-dev/newsletter/internal/logger"
	"golang.org/x/sync/errgroup"
)

type NewsletterService interface {
	Publish(ctx context.Context, creds domain.Credentials, issue domain.NewsletterIssue) (domain.DeliveryReport, error)
}

type CredentialVerifier interface {
	Verify(ctx context.Context, creds domain.Credentials) (domain.UserId, error)
}

type ConfirmedSubscriberLister interface {
	ConfirmedSubscribers(ctx context.Context) ([]domain.SubscriberRow, error)
}

type Newsletter struct {
	verifier        CredentialVerifier
	storage         ConfirmedSubscriberLister
	gateway         NotificationGateway
	renderer        *ContentRenderer
	sendConcurrency int
}

func NewNewsletter(verifier CredentialVerifier, storage ConfirmedSubscriberLister, gateway NotificationGateway, cfg *config.Public) *Newsletter {
	concurrency := cfg.Newsletter.SendConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Newsletter{
		verifier:        verifier,
		storage:         storage,
		gateway:         gateway,
		renderer:        NewContentRenderer(),
		sendConcurrency: concurrency,
	}
}

// Publish authenticates the operator and sends issue to every confirmed
// subscriber. A failed send never stops the batch; if any send failed the
// report is returned together with a PartialDelivery error.
func (n *Newsletter) Publish(ctx context.Context, creds domain.Credentials, issue domain.NewsletterIssue) (domain.DeliveryReport, error) {
	userId, err := n.verifier.Verify(ctx, creds)
	if err != nil {
		return domain.DeliveryReport{}, err
	}

	if strings.TrimSpace(issue.Subject) == "" || strings.TrimSpace(issue.Content) == "" {
		return domain.DeliveryReport{}, internal_errors.Validation("Subject and content are required")
	}
	body, err := n.renderer.Render(issue)
	if err != nil {
		return domain.DeliveryReport{}, err
	}

	rows, err := n.storage.ConfirmedSubscribers(ctx)
	if err != nil {
		logger.Log.Error("failed to list confirmed subscribers", "error", err)
		return domain.DeliveryReport{}, internal_errors.Storage()
	}

	report := domain.DeliveryReport{Failures: []domain.DeliveryFailure{}}
	recipients := make([]domain.Subscriber, 0, len(rows))
	for _, row := range rows {
		subscriber, err := row.Parse()
		if err != nil {
			report.Skipped++
			logger.Log.Warn("skipping confirmed subscriber with invalid stored data", "subscriber_id", row.Id, "error", err)
			continue
		}
		recipients = append(recipients, subscriber)
	}
	report.Recipients = len(recipients)
	deliveriesTotal.WithLabelValues("skipped").Add(float64(report.Skipped))

	// indexed by recipient so the report order is stable
	sendErrs := make([]error, len(recipients))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.sendConcurrency)
	for i, subscriber := range recipients {
		g.Go(func() error {
			err := n.gateway.Send(ctx, subscriber.Email.String(), subscriber.Name.String(), issue.Subject, body)
			mu.Lock()
			sendErrs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range sendErrs {
		subscriber := recipients[i]
		if err == nil {
			report.Delivered++
			continue
		}
		redacted := logger.RedactEmail(subscriber.Email.String())
		logger.Log.Error("failed to deliver newsletter", "subscriber_id", subscriber.Id, "email", redacted, "error", err)
		report.Failures = append(report.Failures, domain.DeliveryFailure{
			SubscriberId: subscriber.Id,
			Email:        redacted,
			Error:        err.Error(),
		})
	}
	deliveriesTotal.WithLabelValues("delivered").Add(float64(report.Delivered))
	deliveriesTotal.WithLabelValues("failed").Add(float64(len(report.Failures)))

	logger.Log.Info("newsletter published",
		"user_id", userId,
		"recipients", report.Recipients,
		"delivered", report.Delivered,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
	)

	if !report.Complete() {
		return report, internal_errors.PartialDelivery()
	}
	return report, nil
}
