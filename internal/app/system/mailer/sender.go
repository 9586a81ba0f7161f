// internal/app/system/mailer/sender.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// DefaultTimeout bounds a single send when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when the transport does not finish in time.
var ErrTimeout = errors.New("mail send timed out")

// Config describes the SMTP relay.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	SiteName string
	Timeout  time.Duration
}

// SMTPSender delivers rendered emails over SMTP.
type SMTPSender struct {
	dialer  *gomail.Dialer
	from    string
	site    string
	timeout time.Duration
	log     *zap.Logger
}

func NewSMTPSender(cfg Config, logger *zap.Logger) *SMTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)

	from := cfg.From
	if cfg.FromName != "" {
		m := gomail.NewMessage()
		from = m.FormatAddress(cfg.From, cfg.FromName)
	}
	return &SMTPSender{dialer: d, from: from, site: cfg.SiteName, timeout: timeout, log: logger}
}

// Send renders tmpl and delivers it to to. It returns when the relay accepts
// the message, the timeout elapses, or ctx is done.
func (s *SMTPSender) Send(ctx context.Context, to string, tmpl Template, data Data) error {
	if data.SiteName == "" {
		data.SiteName = s.site
	}
	e, err := Render(to, tmpl, data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.TextBody)
	m.AddAlternative("text/html", e.HTMLBody)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn("mail send failed",
				zap.String("template", string(tmpl)),
				zap.Duration("took", time.Since(start)),
				zap.Error(err))
			return fmt.Errorf("send %s email: %w", tmpl, err)
		}
		s.log.Info("mail sent",
			zap.String("template", string(tmpl)),
			zap.Duration("took", time.Since(start)))
		return nil
	case <-ctx.Done():
		s.log.Warn("mail send timed out",
			zap.String("template", string(tmpl)),
			zap.Duration("timeout", s.timeout))
		return ErrTimeout
	}
}

// LogSender renders emails and logs them instead of sending. Used when no
// SMTP host is configured.
type LogSender struct {
	site string
	log  *zap.Logger
}

func NewLogSender(siteName string, logger *zap.Logger) *LogSender {
	return &LogSender{site: siteName, log: logger}
}

func (s *LogSender) Send(ctx context.Context, to string, tmpl Template, data Data) error {
	if data.SiteName == "" {
		data.SiteName = s.site
	}
	e, err := Render(to, tmpl, data)
	if err != nil {
		return err
	}
	s.log.Info("mail not sent (no SMTP host configured)",
		zap.String("template", string(tmpl)),
		zap.String("subject", e.Subject))
	return nil
}
