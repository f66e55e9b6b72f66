// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Notification channels
const (
	ChannelEmail     = "email"
	ChannelMessaging = "messaging"
)

// Recipient roles
const (
	RoleCreator = "creator"
	RoleBrand   = "brand"
	RoleAdmin   = "admin"
)

// NotificationService delivers templated notifications. Delivery is
// best-effort: callers ignore the returned error for non-critical sends.
type NotificationService interface {
	Notify(ctx context.Context, channel, recipientRole, templateKey string, templateCtx map[string]string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider     EmailProvider
	messagingProvider MessagingProvider
	adminEmail        string
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// MessagingProvider interface for in-app/push message sending
type MessagingProvider interface {
	SendMessage(recipient, message string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider, messagingProvider MessagingProvider, adminEmail string) NotificationService {
	return &NotificationServiceImpl{
		emailProvider:     emailProvider,
		messagingProvider: messagingProvider,
		adminEmail:        adminEmail,
	}
}

// Notify renders the template key with its context and dispatches it on the
// requested channel. The recipient address comes from templateCtx["recipient"]
// except for admin sends, which go to the configured admin address.
func (s *NotificationServiceImpl) Notify(ctx context.Context, channel, recipientRole, templateKey string, templateCtx map[string]string) error {
	recipient := templateCtx["recipient"]
	if recipientRole == RoleAdmin {
		recipient = s.adminEmail
	}
	if recipient == "" {
		return fmt.Errorf("no recipient for notification %s", templateKey)
	}

	subject, body := renderTemplate(templateKey, templateCtx)

	switch channel {
	case ChannelEmail:
		if s.emailProvider == nil {
			return fmt.Errorf("email provider not configured")
		}
		if !strings.Contains(recipient, "@") {
			return fmt.Errorf("invalid email address: %s", recipient)
		}
		return s.emailProvider.SendEmail(recipient, subject, body)
	case ChannelMessaging:
		if s.messagingProvider == nil {
			return fmt.Errorf("messaging provider not configured")
		}
		return s.messagingProvider.SendMessage(recipient, body)
	default:
		return fmt.Errorf("unknown notification channel: %s", channel)
	}
}

// renderTemplate produces a subject and body for a template key. Templates
// are deliberately plain: the notification content is not a product surface
// here, only the dispatch pipeline is.
func renderTemplate(templateKey string, templateCtx map[string]string) (string, string) {
	var sb strings.Builder
	for k, v := range templateCtx {
		if k == "recipient" {
			continue
		}
		fmt.Fprintf(&sb, "%s=%s; ", k, v)
	}
	subject := strings.ReplaceAll(templateKey, "_", " ")
	return subject, sb.String()
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	log.Printf("Email sent to %s [%s]: %s", email, subject, message)
	return nil
}

type MockMessagingProvider struct{}

func NewMockMessagingProvider() MessagingProvider {
	return &MockMessagingProvider{}
}

func (p *MockMessagingProvider) SendMessage(recipient, message string) error {
	log.Printf("Message sent to %s: %s", recipient, message)
	return nil
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
	}
}

func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	// Implementation would use net/smtp package or a library like gomail

	log.Printf("Sending email via SMTP to %s [%s]: %s", email, subject, message)

	return nil
}
