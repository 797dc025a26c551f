// internal/notify/sms.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"bloodlink/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the slice of the SNS client the SMS sender uses.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PhoneDirectory resolves a user's phone number across profile tables.
type PhoneDirectory interface {
	PhoneForUser(ctx context.Context, userID string) (string, error)
}

// SMSSender delivers hospital notifications over SNS. A missing phone number
// or unconfigured transport is a channel outcome, never a job error.
type SMSSender struct {
	client        SNSAPI
	phones        PhoneDirectory
	enabled       bool
	senderID      string
	countryCode   string
	hospitalLimit int
	logger        logger.Logger
}

func NewSMSSender(client SNSAPI, phones PhoneDirectory, enabled bool, senderID, countryCode string, hospitalLimit int, log logger.Logger) *SMSSender {
	if hospitalLimit < 1 {
		hospitalLimit = 3
	}
	return &SMSSender{
		client:        client,
		phones:        phones,
		enabled:       enabled,
		senderID:      senderID,
		countryCode:   countryCode,
		hospitalLimit: hospitalLimit,
		logger:        log.WithFields(map[string]interface{}{"component": "sms-sender"}),
	}
}

// Send renders and publishes the SMS for one payload.
func (s *SMSSender) Send(ctx context.Context, p Payload) Outcome {
	if !s.enabled || s.client == nil {
		return Outcome{OK: false, Detail: "SMS service not configured"}
	}

	phone, err := s.phones.PhoneForUser(ctx, p.User.ID)
	if err != nil {
		s.logger.WithError(err).Error("phone lookup failed", map[string]interface{}{
			"userId": p.User.ID,
		})
		return Outcome{OK: false, Detail: fmt.Sprintf("SMS failed: %v", err)}
	}
	if phone == "" {
		return Outcome{OK: false, Detail: "User phone number not found"}
	}
	phone = NormalizePhone(phone, s.countryCode)

	body := s.renderBody(p)

	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.logger.WithError(err).Error("sms publish failed", map[string]interface{}{
			"userId": p.User.ID,
		})
		return Outcome{OK: false, Detail: fmt.Sprintf("SMS failed: %v", err)}
	}

	messageID := aws.ToString(out.MessageId)
	s.logger.Info("sms sent", map[string]interface{}{
		"userId":    p.User.ID,
		"messageId": messageID,
	})
	return Outcome{OK: true, Detail: fmt.Sprintf("SMS sent successfully (ID: %s)", messageID)}
}

func (s *SMSSender) renderBody(p Payload) string {
	hospitals := p.Hospitals
	if len(hospitals) > s.hospitalLimit {
		hospitals = hospitals[:s.hospitalLimit]
	}

	lines := make([]string, 0, len(hospitals))
	for _, h := range hospitals {
		lines = append(lines, fmt.Sprintf("%s (%gkm) - %s", h.Name, h.DistanceKM, h.ContactPhone))
	}

	stockParts := make([]string, 0, len(p.BloodStock))
	for _, group := range sortedBloodGroups(p.BloodStock) {
		if units := p.BloodStock[group]; units > 0 {
			stockParts = append(stockParts, fmt.Sprintf("%s:%d", group, units))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Nearby Hospitals (%dkm radius):\n\n", p.SearchRadiusKM)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nBlood Stock Available:\n")
	b.WriteString(strings.Join(stockParts, ", "))
	b.WriteString("\n\nEmergency: Call hospitals directly\n- Blood Bank Management System")
	return b.String()
}

// NormalizePhone prefixes the default country code when the number carries
// none, dropping trunk zeros first.
func NormalizePhone(phone, countryCode string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return countryCode + strings.TrimLeft(phone, "0")
}
