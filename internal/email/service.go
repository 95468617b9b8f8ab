// Package email sends moderation-decision notifications via SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

// NewService creates a new email service
func NewService(config Config) *Service {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)

	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a plain text email
func (s *Service) SendEmail(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := []byte(fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		strings.Join(to, ", "),
		from,
		subject,
		body,
	))

	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}

// SendTermApproved notifies a term's author that the term went live.
func (s *Service) SendTermApproved(to, termName, language string) error {
	subject := fmt.Sprintf("Your term %q was approved", termName)
	body := fmt.Sprintf(
		"Good news!\n\nYour term %q (%s) was approved by a moderator and is now visible to everyone.\n\nThanks for contributing.\n",
		termName, language,
	)
	return s.SendEmail([]string{to}, subject, body)
}

// SendTermRejected notifies a term's author about a rejection.
func (s *Service) SendTermRejected(to, termName string) error {
	subject := fmt.Sprintf("Your term %q was not approved", termName)
	body := fmt.Sprintf(
		"Your term %q was reviewed by a moderator and was not approved.\n\nYou can revise and submit it again at any time.\n",
		termName,
	)
	return s.SendEmail([]string{to}, subject, body)
}

// BuildDecisionHTML renders the HTML body used by clients that prefer rich
// notifications.
func BuildDecisionHTML(termName, decision string) (string, error) {
	tmpl := template.Must(template.New("decision").Parse(decisionTemplate))
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Term     string
		Decision string
	}{termName, decision})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

const decisionTemplate = `<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Term review result</h2>
  <p>Your term <strong>{{.Term}}</strong> was <strong>{{.Decision}}</strong>.</p>
</body>
</html>`
