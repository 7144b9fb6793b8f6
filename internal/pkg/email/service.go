// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/your-org/storefront-backend/internal/config"
)

// ErrUnavailable is returned while the breaker is open
var ErrUnavailable = errors.New("email delivery temporarily unavailable")

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService renders templates and delivers them through a circuit breaker
type EmailService struct {
	config    config.EmailConfig
	sender    Sender
	breaker   *gobreaker.CircuitBreaker
	templates map[EmailType]*template.Template
	log       logrus.FieldLogger
}

// NewEmailService creates an email service using the configured provider
func NewEmailService(cfg *config.Config, log logrus.FieldLogger) *EmailService {
	var sender Sender
	switch cfg.Email.Provider {
	case "smtp":
		sender = NewSMTPSender(cfg.Email)
	default:
		sender = &LogSender{log: log}
	}
	return NewEmailServiceWithSender(cfg, sender, log)
}

// NewEmailServiceWithSender creates an email service around an explicit sender
func NewEmailServiceWithSender(cfg *config.Config, sender Sender, log logrus.FieldLogger) *EmailService {
	settings := gobreaker.Settings{
		Name:        "EmailSender",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &EmailService{
		config:    cfg.Email,
		sender:    sender,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		templates: parseTemplates(),
		log:       log,
	}
}

// SendEmail delivers one email unless the breaker is open
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.sender.Send(ctx, email)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", email.Type, err)
	}
	return nil
}

// SendPasswordResetEmail sends the reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, userEmail, userName, resetToken string, expiry time.Duration) error {
	data := PasswordResetData{
		EmailTemplateData: s.base(userName, userEmail),
		ResetURL:          fmt.Sprintf("%s/reset-password?token=%s", s.config.BaseURL, resetToken),
		ExpiryTime:        expiry.String(),
	}
	return s.render(ctx, userEmail, "Reset Your Password", EmailTypePasswordReset, data)
}

// SendOrderConfirmationEmail sends order confirmation email
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, userEmail, userName string, data OrderConfirmationData) error {
	data.EmailTemplateData = s.base(userName, userEmail)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.config.BaseURL, data.OrderNumber)
	subject := fmt.Sprintf("Order Confirmation - %s", data.OrderNumber)
	return s.render(ctx, userEmail, subject, EmailTypeOrderConfirmation, data)
}

// SendOrderStatusUpdateEmail sends order status update notification
func (s *EmailService) SendOrderStatusUpdateEmail(ctx context.Context, userEmail, userName string, data OrderStatusUpdateData) error {
	data.EmailTemplateData = s.base(userName, userEmail)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.config.BaseURL, data.OrderNumber)
	subject := fmt.Sprintf("Order Update - %s", data.OrderNumber)
	return s.render(ctx, userEmail, subject, EmailTypeOrderStatusUpdate, data)
}

// SendAccountBannedEmail tells a user their account was suspended
func (s *EmailService) SendAccountBannedEmail(ctx context.Context, userEmail, userName, reason string) error {
	data := AccountBannedData{EmailTemplateData: s.base(userName, userEmail), Reason: reason}
	return s.render(ctx, userEmail, "Your account has been suspended", EmailTypeAccountBanned, data)
}

func (s *EmailService) base(userName, userEmail string) EmailTemplateData {
	return baseTemplateData(s.config.FromName, s.config.BaseURL, userName, userEmail)
}

func (s *EmailService) render(ctx context.Context, to, subject string, kind EmailType, data any) error {
	tmpl, ok := s.templates[kind]
	if !ok {
		return fmt.Errorf("template %s not found", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", kind, err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{to},
		Subject:     subject,
		HTMLContent: buf.String(),
		Type:        kind,
	})
}

// LogSender writes emails to the log instead of delivering them
type LogSender struct {
	log logrus.FieldLogger
}

// Send implements Sender
func (l *LogSender) Send(_ context.Context, email *Email) error {
	l.log.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
		"type":    email.Type,
	}).Info("Email delivery skipped by log provider")
	return nil
}

const layoutHead = `<!DOCTYPE html><html><head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f4f4f4;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">{{.SiteName}}</h1><p>Hello {{.UserName}},</p>`

const layoutFoot = `<hr><p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p></div></body></html>`

var templateBodies = map[EmailType]string{
	EmailTypePasswordReset: `<p>We received a request to reset your password.</p>
<p><a href="{{.ResetURL}}">Reset your password</a>. The link expires in {{.ExpiryTime}}.</p>
<p>If you did not ask for this you can ignore this email.</p>`,
	EmailTypeOrderConfirmation: `<p>Thanks for your order <strong>{{.OrderNumber}}</strong>.</p>
<table>{{range .Items}}<tr><td>{{.Name}}</td><td>x{{.Quantity}}</td><td>{{.Price}}</td></tr>{{end}}</table>
<p>Total: <strong>{{.OrderTotal}}</strong></p>
<p>Estimated delivery: {{.EstimatedDelivery}}</p>
<p><a href="{{.OrderURL}}">View your order</a></p>`,
	EmailTypeOrderStatusUpdate: `<p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>`,
	EmailTypeAccountBanned: `<p>Your account has been suspended.</p>{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}`,
}

func parseTemplates() map[EmailType]*template.Template {
	out := make(map[EmailType]*template.Template, len(templateBodies))
	for kind, body := range templateBodies {
		out[kind] = template.Must(template.New(string(kind)).Parse(layoutHead + body + layoutFoot))
	}
	return out
}
