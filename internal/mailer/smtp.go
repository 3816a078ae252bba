package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ipo-report-go/internal/logger"
)

var ErrNotConfigured = errors.New("mailer: smtp host or sender not configured")

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// StartTLS upgrades the connection before authenticating.
	StartTLS   bool
	Timeout    time.Duration
	MaxElapsed time.Duration
}

// Configured reports whether enough is set to attempt delivery.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

// Transport delivers a built message to the recipients.
type Transport func(ctx context.Context, cfg Config, from string, to []string, msg []byte) error

// Mailer sends messages with retry.
type Mailer struct {
	cfg       Config
	transport Transport
	log       *logger.Logger
	now       func() time.Time
}

func New(cfg Config, log *logger.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = time.Minute
	}
	return &Mailer{cfg: cfg, transport: sendSMTP, log: log.WithComponent("mailer"), now: time.Now}
}

// WithTransport swaps the delivery function; used by tests.
func (m *Mailer) WithTransport(t Transport) *Mailer {
	m.transport = t
	return m
}

// Send builds msg and delivers it. Transient failures are retried with
// exponential backoff; 5xx SMTP replies are not.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}
	to, err := msg.Recipients()
	if err != nil {
		return err
	}
	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}
	body, err := Build(from, msg, m.now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	log := m.log.WithField("to", to).WithField("subject", msg.Subject)
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = m.cfg.MaxElapsed
	attempt := 0
	op := func() error {
		attempt++
		err := m.transport(ctx, m.cfg, m.cfg.From, to, body)
		if err == nil {
			return nil
		}
		var perr *textproto.Error
		if errors.As(err, &perr) && perr.Code >= 500 {
			return backoff.Permanent(err)
		}
		log.WithError(err).WithField("attempt", attempt).Warn("smtp send failed, retrying")
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		log.WithError(err).Error("smtp send gave up")
		return fmt.Errorf("send mail: %w", err)
	}
	log.WithField("bytes", len(body)).Info("mail sent")
	return nil
}

func sendSMTP(ctx context.Context, cfg Config, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	}
	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if cfg.StartTLS {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
