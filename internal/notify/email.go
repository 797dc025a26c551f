// internal/notify/email.go
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"bloodlink/internal/common/config"
	"bloodlink/internal/common/logger"
	"bloodlink/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the slice of the SES client the email sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender delivers hospital notifications by email. SES when enabled,
// otherwise plain SMTP; no cascading between the two.
type EmailSender struct {
	ses          SESAPI
	sesEnabled   bool
	fromEmail    string
	integrations config.IntegrationConfig
	logger       logger.Logger
}

func NewEmailSender(sesClient SESAPI, integrations config.IntegrationConfig, log logger.Logger) *EmailSender {
	from := integrations.AWS.SES.FromEmail
	if from == "" {
		from = integrations.SMTP.DefaultFrom
	}
	return &EmailSender{
		ses:          sesClient,
		sesEnabled:   integrations.AWS.SES.Enabled && sesClient != nil,
		fromEmail:    from,
		integrations: integrations,
		logger:       log.WithFields(map[string]interface{}{"component": "email-sender"}),
	}
}

// Send renders and delivers the email for one payload.
func (s *EmailSender) Send(ctx context.Context, p Payload) Outcome {
	if p.User.Email == "" {
		return Outcome{OK: false, Detail: "User email address not found"}
	}

	subject := fmt.Sprintf("Nearby Hospitals & Blood Stock - %d found", p.TotalHospitals)
	body := renderEmailBody(p)

	if s.sesEnabled {
		return s.sendViaSES(ctx, p.User.Email, subject, body)
	}
	if s.integrations.SMTP.Host != "" {
		return s.sendViaSMTP(p.User.Email, subject, body)
	}
	return Outcome{OK: false, Detail: "Email service not configured"}
}

func (s *EmailSender) sendViaSES(ctx context.Context, to, subject, body string) Outcome {
	out, err := s.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		s.logger.WithError(err).Error("ses send failed", map[string]interface{}{
			"to": to,
		})
		return Outcome{OK: false, Detail: fmt.Sprintf("Email failed: %v", err)}
	}

	messageID := aws.ToString(out.MessageId)
	s.logger.Info("email sent via ses", map[string]interface{}{
		"to":        to,
		"messageId": messageID,
	})
	return Outcome{OK: true, Detail: fmt.Sprintf("Email sent via SES (ID: %s)", messageID)}
}

func (s *EmailSender) sendViaSMTP(to, subject, body string) Outcome {
	cfg := s.integrations.SMTP
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	msg := strings.Join([]string{
		"From: " + s.fromEmail,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{to}, []byte(msg)); err != nil {
		s.logger.WithError(err).Error("smtp send failed", map[string]interface{}{
			"to": to,
		})
		return Outcome{OK: false, Detail: fmt.Sprintf("Email failed: %v", err)}
	}

	s.logger.Info("email sent via smtp", map[string]interface{}{"to": to})
	return Outcome{OK: true, Detail: "Email sent via SMTP"}
}

func renderEmailBody(p Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nearby Hospitals (%dkm radius):\n\n", p.SearchRadiusKM)

	for _, h := range p.Hospitals {
		fmt.Fprintf(&b, "%s (%gkm away)\n", h.Name, h.DistanceKM)
		fmt.Fprintf(&b, "Address: %s, %s\n", h.Address, h.City)
		fmt.Fprintf(&b, "Phone: %s\n", h.ContactPhone)
		if h.ContactEmail != "" {
			fmt.Fprintf(&b, "Email: %s\n", h.ContactEmail)
		}
		if h.EmergencyContact != "" {
			fmt.Fprintf(&b, "Emergency: %s\n", h.EmergencyContact)
		}
		b.WriteString("\n")
	}

	b.WriteString("Current Blood Stock:\n")
	for _, group := range sortedBloodGroups(p.BloodStock) {
		units := p.BloodStock[group]
		fmt.Fprintf(&b, "%s: %d units (%s)\n", group, units, models.StockStatusLabel(units))
	}

	b.WriteString("\nFor emergencies, contact hospitals directly.\n\nBest regards,\nBlood Bank Management System\n")
	return b.String()
}
