package testutil

import (
	"context"
	"sync"

	"github.com/dalemusser/contesthub/internal/app/system/mailer"
)

// SentMail is one call captured by MailRecorder.
type SentMail struct {
	To       string
	Template mailer.Template
	Data     mailer.Data
}

// MailRecorder is an in-memory mail sender for tests. Set Err to make every
// send fail.
type MailRecorder struct {
	mu   sync.Mutex
	Err  error
	sent []SentMail
}

func (m *MailRecorder) Send(ctx context.Context, to string, tmpl mailer.Template, data mailer.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentMail{To: to, Template: tmpl, Data: data})
	return nil
}

// Sent returns a copy of the captured mail.
func (m *MailRecorder) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent mail, if any.
func (m *MailRecorder) Last() (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}
