// Package email sends convocations and account messages over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP settings are missing.
var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Recipient is one addressee of a convocation.
type Recipient struct {
	Name  string
	Email string
}

type Service struct {
	config Config
	sender Sender
	logger *zap.Logger
}

func NewService(config Config, logger *zap.Logger) *Service {
	return NewServiceWithSender(config, gomail.NewDialer(config.Host, config.Port, config.Username, config.Password), logger)
}

func NewServiceWithSender(config Config, sender Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{config: config, sender: sender, logger: logger.Named("email")}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s != nil && s.config.Host != "" && s.config.Port > 0 && s.config.From != ""
}

func (s *Service) newMessage(to Recipient, subject string) *gomail.Message {
	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.From, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.From)
	}
	if to.Name != "" {
		m.SetAddressHeader("To", to.Email, to.Name)
	} else {
		m.SetHeader("To", to.Email)
	}
	m.SetHeader("Subject", subject)
	return m
}

// SendConvocation mails the convocation text to each recipient separately,
// so members never see each other's addresses. It returns how many were
// delivered and the joined errors of the rest.
func (s *Service) SendConvocation(recipients []Recipient, title, body string) (int, error) {
	if !s.IsConfigured() {
		return 0, ErrNotConfigured
	}

	html, err := renderTemplate(convocationTemplate, convocationData{Title: title, Paragraphs: paragraphs(body)})
	if err != nil {
		return 0, fmt.Errorf("render convocation template: %w", err)
	}

	sent := 0
	var errs []error
	for _, to := range recipients {
		if strings.TrimSpace(to.Email) == "" {
			continue
		}
		m := s.newMessage(to, "Convocação: "+title)
		m.SetBody("text/plain", body)
		m.AddAlternative("text/html", html)
		if err := s.sender.DialAndSend(m); err != nil {
			s.logger.Warn("convocation not delivered", zap.String("to", to.Email), zap.Error(err))
			errs = append(errs, fmt.Errorf("send to %s: %w", to.Email, err))
			continue
		}
		sent++
	}
	s.logger.Info("convocation sent", zap.String("title", title), zap.Int("sent", sent), zap.Int("failed", len(errs)))
	return sent, errors.Join(errs...)
}

// SendPasswordReset mails the reset link.
func (s *Service) SendPasswordReset(to Recipient, resetURL string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	html, err := renderTemplate(passwordResetTemplate, passwordResetData{UserName: to.Name, ResetURL: resetURL})
	if err != nil {
		return fmt.Errorf("render password reset template: %w", err)
	}

	m := s.newMessage(to, "Redefinição de senha")
	m.SetBody("text/plain", "Para redefinir sua senha, acesse: "+resetURL+"\n\nO link expira em 1 hora.")
	m.AddAlternative("text/html", html)
	if err := s.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

type convocationData struct {
	Title      string
	Paragraphs [][]string
}

type passwordResetData struct {
	UserName string
	ResetURL string
}

// paragraphs splits text on blank lines and each paragraph into lines.
func paragraphs(text string) [][]string {
	var out [][]string
	var current []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var convocationTemplate = template.Must(template.New("convocation").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    {{range .Paragraphs}}<p>{{range $i, $line := .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
    {{end}}
</body>
</html>`))

var passwordResetTemplate = template.Must(template.New("password-reset").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
    <meta charset="UTF-8">
    <title>Redefinição de senha</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <p>Olá{{if .UserName}}, {{.UserName}}{{end}}.</p>
    <p>Recebemos um pedido para redefinir sua senha.</p>
    <p><a href="{{.ResetURL}}" style="display: inline-block; padding: 12px 24px; background: #1d4ed8; color: white; text-decoration: none; border-radius: 4px;">Redefinir senha</a></p>
    <p>Se você não fez esse pedido, ignore esta mensagem. O link expira em 1 hora.</p>
</body>
</html>`))
