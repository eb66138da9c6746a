// Package leads captures completed forms: it stores them, forwards them to
// the form's webhook and fans out CRM and notification side effects.
package leads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	awsx "leadcapture/internal/common/aws"
	"leadcapture/internal/common/errors"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/observability"
	"leadcapture/internal/common/zoho"
	"leadcapture/internal/forms"
	"leadcapture/internal/models"
	"leadcapture/internal/phone"
	"leadcapture/internal/webhook"
)

const defaultSideEffectTimeout = 15 * time.Second

// WebhookSender delivers a submission to a URL.
type WebhookSender interface {
	Send(ctx context.Context, url string, sub *forms.Submission) (*webhook.Response, error)
}

// ContactUpserter syncs a contact into the CRM.
type ContactUpserter interface {
	UpsertContact(ctx context.Context, contact *zoho.Contact) (string, bool, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg awsx.Email) (string, error)
}

type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) (string, error)
}

// Dependencies are the collaborators of a Service. Only Webhook is
// required; nil side effects are skipped.
type Dependencies struct {
	Repository    models.LeadRepository
	Webhook       WebhookSender
	CRM           ContactUpserter
	Mailer        EmailSender
	SMS           SMSSender
	Observability *observability.Observability
	Tracer        trace.Tracer
	Logger        logger.Logger
}

type Options struct {
	// WebhookURLs maps a form name to its webhook.
	WebhookURLs       map[string]string
	SalesPhoneNumber  string
	SideEffectTimeout time.Duration
}

type Service struct {
	deps   Dependencies
	opts   Options
	logger logger.Logger
	tracer trace.Tracer
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewService(deps Dependencies, opts Options) *Service {
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = defaultSideEffectTimeout
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = observability.Tracer("leads")
	}
	return &Service{
		deps:   deps,
		opts:   opts,
		logger: logger.Component(deps.Logger, "leads"),
		tracer: tracer,
		now:    time.Now,
	}
}

// Submit implements forms.Submitter. The webhook outcome decides the result;
// storage and side-effect failures are only logged.
func (s *Service) Submit(ctx context.Context, sub *forms.Submission) (*forms.Result, error) {
	if s.deps.Webhook == nil {
		return nil, errors.NewWebhookNotConfiguredError(sub.Form)
	}

	start := s.now()
	contact := ContactFrom(sub)
	lead := &models.Lead{
		ID:        uuid.NewString(),
		Form:      sub.Form,
		Name:      contact.FullName(),
		Email:     contact.Email,
		Phone:     contact.Phone,
		Company:   contact.Company,
		Payload:   sub.Fields(),
		CreatedAt: start.UTC(),
	}
	log := s.logger.WithFields(map[string]interface{}{
		"submissionId": lead.ID,
		"form":         sub.Form,
	})

	stored := s.store(ctx, log, lead)

	ctx, span := s.tracer.Start(ctx, "webhook.send", trace.WithAttributes(
		attribute.String("form", sub.Form),
		attribute.String("submission.id", lead.ID),
	))
	resp, err := s.deps.Webhook.Send(ctx, s.opts.WebhookURLs[sub.Form], sub)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	result := &forms.Result{SubmissionID: lead.ID}
	if err == nil {
		result.Delivered = resp.Delivered
		result.StatusCode = resp.StatusCode
		result.Response = resp.Body
	} else if status, ok := errors.Normalize(err).Metadata["statusCode"].(int); ok {
		result.StatusCode = status
	}

	if stored {
		if markErr := s.deps.Repository.MarkDelivery(ctx, lead.ID, result.Delivered, result.StatusCode); markErr != nil {
			log.Warn("failed to record delivery state", map[string]interface{}{"error": markErr})
		}
	}

	outcome := "delivered"
	if !result.Delivered {
		outcome = "failed"
	}
	s.deps.Observability.RecordLead(ctx, sub.Form, outcome, s.now().Sub(start))

	s.sideEffects(ctx, log, sub.Form, contact)

	if err != nil {
		return result, err
	}
	log.Info("lead captured", map[string]interface{}{
		"statusCode": result.StatusCode,
		"phone":      phone.Mask(contact.Phone),
	})
	return result, nil
}

func (s *Service) store(ctx context.Context, log logger.Logger, lead *models.Lead) bool {
	if s.deps.Repository == nil {
		return false
	}
	if err := s.deps.Repository.Create(ctx, lead); err != nil {
		log.Warn("failed to persist lead", map[string]interface{}{"error": err})
		return false
	}
	return true
}

// sideEffects runs the optional integrations in the background, bounded by
// SideEffectTimeout and detached from the request context.
func (s *Service) sideEffects(ctx context.Context, log logger.Logger, form string, c Contact) {
	if s.deps.CRM == nil && s.deps.Mailer == nil && s.deps.SMS == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SideEffectTimeout)
		defer cancel()

		var inner sync.WaitGroup
		run := func(name string, fn func(context.Context) error) {
			inner.Add(1)
			go func() {
				defer inner.Done()
				if err := fn(ctx); err != nil {
					log.Warn("lead side effect failed", map[string]interface{}{
						"sideEffect": name,
						"error":      err,
					})
				}
			}()
		}

		if s.deps.CRM != nil && c.Email != "" {
			run("crm", func(ctx context.Context) error { return s.syncCRM(ctx, log, form, c) })
		}
		if s.deps.Mailer != nil && c.Email != "" {
			run("email", func(ctx context.Context) error { return s.sendConfirmation(ctx, form, c) })
		}
		if s.deps.SMS != nil && s.opts.SalesPhoneNumber != "" {
			run("sms", func(ctx context.Context) error { return s.alertSales(ctx, form, c) })
		}
		inner.Wait()
	}()
}

func (s *Service) syncCRM(ctx context.Context, log logger.Logger, form string, c Contact) error {
	lastName := c.LastName
	if lastName == "" {
		// the CRM rejects contacts without a last name
		lastName = c.FirstName
	}
	id, created, err := s.deps.CRM.UpsertContact(ctx, &zoho.Contact{
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    lastName,
		Phone:       c.Phone,
		Company:     c.Company,
		Source:      "Website - " + form,
		Description: c.Message,
	})
	if err != nil {
		return errors.NewCRMAPIError(err)
	}
	log.Info("CRM contact synced", map[string]interface{}{"contactId": id, "created": created})
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, form string, c Contact) error {
	name := c.FirstName
	if name == "" {
		name = "there"
	}
	_, err := s.deps.Mailer.Send(ctx, awsx.Email{
		To:      c.Email,
		Subject: "We received your request",
		Text: fmt.Sprintf("Hi %s,\n\nThanks for reaching out through our %s form. "+
			"Someone from our team will get back to you within one business day.\n", name, form),
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("email", err)
	}
	return nil
}

func (s *Service) alertSales(ctx context.Context, form string, c Contact) error {
	msg := fmt.Sprintf("New %s lead: %s", form, c.FullName())
	if c.Company != "" {
		msg += " (" + c.Company + ")"
	}
	if c.Phone != "" {
		msg += " " + phone.Display(c.Phone)
	}
	if c.Email != "" {
		msg += " " + c.Email
	}
	if _, err := s.deps.SMS.Send(ctx, s.opts.SalesPhoneNumber, msg); err != nil {
		return errors.NewNotificationSendFailedError("sms", err)
	}
	return nil
}

// Flush waits for pending side effects.
func (s *Service) Flush() {
	s.wg.Wait()
}
