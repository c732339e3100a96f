package worker

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender { return &SMTPSender{cfg: cfg} }

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return smtp.SendMail(addr, auth, s.cfg.From, to, buildMessage(s.cfg.From, to, subject, htmlBody))
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

var completedTmpl = template.Must(template.New("investment_completed").Parse(`<p>Hi {{.Name}},</p>
<p>Your {{.PlanName}} investment ({{.TransactionID}}) has matured on {{.CompletedAt}}.</p>
<p>Principal released to your balance: <b>{{.PrincipalAmount}}</b><br>
Total profit earned: <b>{{.TotalEarned}}</b></p>`))

func renderCompleted(name string, p InvestmentCompletedPayload) (string, error) {
	var body bytes.Buffer
	err := completedTmpl.Execute(&body, map[string]any{
		"Name":            name,
		"PlanName":        p.PlanName,
		"TransactionID":   p.TransactionID,
		"CompletedAt":     p.CompletedAt.UTC().Format("2006-01-02"),
		"PrincipalAmount": p.PrincipalAmount,
		"TotalEarned":     p.TotalEarned,
	})
	if err != nil {
		return "", fmt.Errorf("render investment_completed: %w", err)
	}
	return body.String(), nil
}
