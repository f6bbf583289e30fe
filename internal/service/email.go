package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"franchise-ledger-backend/internal/config"
	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

type emailService struct {
	apiKey        string
	fromEmail     string
	fromName      string
	operatorEmail string
	contacts      repository.ContactResolver
}

func NewEmailService(cfg config.SendGridConfig, contacts repository.ContactResolver) NotificationService {
	return &emailService{
		apiKey:        cfg.APIKey,
		fromEmail:     cfg.FromEmail,
		fromName:      cfg.FromName,
		operatorEmail: cfg.OperatorEmail,
		contacts:      contacts,
	}
}

func (s *emailService) SendPaymentReminder(ctx context.Context, tx *domain.Transaction, daysOverdue int, penaltyEstimate decimal.Decimal) error {
	email, name, err := s.contacts.FranchiseeContact(ctx, tx.FranchiseeID)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Payment reminder: %s", tx.Reference)
	plainText := fmt.Sprintf(
		"Dear %s,\n\nPayment %s of %s %s is %d day(s) overdue. "+
			"Late penalties of approximately %s %s may apply if it remains unpaid.\n\n"+
			"Please settle the outstanding amount at your earliest convenience.",
		name, tx.Reference, tx.Amount.StringFixed(2), tx.Currency, daysOverdue,
		penaltyEstimate.StringFixed(2), tx.Currency)
	htmlContent := fmt.Sprintf(
		`<p>Dear %s,</p><p>Payment <strong>%s</strong> of %s&nbsp;%s is <strong>%d day(s)</strong> overdue. `+
			`Late penalties of approximately %s&nbsp;%s may apply if it remains unpaid.</p>`+
			`<p>Please settle the outstanding amount at your earliest convenience.</p>`,
		name, tx.Reference, tx.Amount.StringFixed(2), tx.Currency, daysOverdue,
		penaltyEstimate.StringFixed(2), tx.Currency)
	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *emailService) SendFinalNotice(ctx context.Context, tx *domain.Transaction, daysOverdue int) error {
	email, name, err := s.contacts.FranchiseeContact(ctx, tx.FranchiseeID)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Final notice: %s", tx.Reference)
	plainText := fmt.Sprintf(
		"Dear %s,\n\nThis is a final notice. Payment %s of %s %s has been outstanding for %d days. "+
			"Your franchise agreement is now under review; continued non-payment may lead to suspension.",
		name, tx.Reference, tx.Amount.StringFixed(2), tx.Currency, daysOverdue)
	htmlContent := fmt.Sprintf(
		`<p>Dear %s,</p><p><strong>This is a final notice.</strong> Payment <strong>%s</strong> of %s&nbsp;%s `+
			`has been outstanding for %d days. Your franchise agreement is now under review; `+
			`continued non-payment may lead to suspension.</p>`,
		name, tx.Reference, tx.Amount.StringFixed(2), tx.Currency, daysOverdue)
	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *emailService) SendPaymentConfirmation(ctx context.Context, tx *domain.Transaction) error {
	email, name, err := s.contacts.FranchiseeContact(ctx, tx.FranchiseeID)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Payment received: %s", tx.Reference)
	plainText := fmt.Sprintf(
		"Dear %s,\n\nWe received your payment %s of %s %s. Thank you.",
		name, tx.Reference, tx.Amount.StringFixed(2), tx.Currency)
	htmlContent := fmt.Sprintf(
		`<p>Dear %s,</p><p>We received your payment <strong>%s</strong> of %s&nbsp;%s. Thank you.</p>`,
		name, tx.Reference, tx.Amount.StringFixed(2), tx.Currency)
	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *emailService) SendOperatorAlert(_ context.Context, subject, body string) error {
	return s.send(s.operatorEmail, "Operations", subject, body, fmt.Sprintf("<pre>%s</pre>", body))
}

func (s *emailService) send(to, toName, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
