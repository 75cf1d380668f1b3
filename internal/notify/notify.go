// Package notify sends best-effort notices about ledger events.
package notify

import (
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"

	"github.com/cleared-dev/asientos/internal/config"
)

// Sender delivers a notice. It reports success and never returns an error;
// failures are the sender's to log.
type Sender interface {
	Send(subject, body, recipient string) bool
}

// Nop discards every notice.
type Nop struct{}

// Send implements Sender.
func (Nop) Send(string, string, string) bool { return true }

// Message is one notice captured by Recorder.
type Message struct {
	Subject   string
	Body      string
	Recipient string
}

// Recorder keeps notices in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Fail     bool // when set, Send records nothing and returns false
}

// Send implements Sender.
func (r *Recorder) Send(subject, body, recipient string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return false
	}
	r.messages = append(r.messages, Message{Subject: subject, Body: body, Recipient: recipient})
	return true
}

// Messages returns a copy of the recorded notices.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// SMTP sends HTML mail through an SMTP relay, upgrading to TLS when the
// server offers STARTTLS.
type SMTP struct {
	Addr     string // host:port
	Host     string
	Username string
	Password string
	From     string
	Log      *slog.Logger

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP builds an SMTP sender from the mail configuration.
func NewSMTP(cfg config.MailConfig, logger *slog.Logger) *SMTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTP{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Host:     cfg.Host,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		Log:      logger,
		send:     smtp.SendMail,
	}
}

// Send implements Sender.
func (s *SMTP) Send(subject, body, recipient string) bool {
	if recipient == "" {
		s.Log.Warn("notification skipped: no recipient", "subject", subject)
		return false
	}

	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	msg := BuildMessage(s.From, recipient, subject, body)
	if err := s.send(s.Addr, auth, s.From, []string{recipient}, msg); err != nil {
		s.Log.Error("notification failed", "subject", subject, "recipient", recipient, "err", err)
		return false
	}
	s.Log.Info("notification sent", "subject", subject, "recipient", recipient)
	return true
}

// BuildMessage renders an RFC 5322 message with an HTML body.
func BuildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mimeSubject(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// mimeSubject Q-encodes subjects with non-ASCII characters ("Anulación").
func mimeSubject(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// New returns an SMTP sender when mail is enabled and Nop otherwise.
func New(cfg config.MailConfig, logger *slog.Logger) Sender {
	if !cfg.Enabled || cfg.Host == "" {
		return Nop{}
	}
	return NewSMTP(cfg, logger)
}
