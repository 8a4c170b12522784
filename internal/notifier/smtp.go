package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig configures mail delivery
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
	// TLSConfig overrides the default, which verifies Host.
	TLSConfig *tls.Config
}

// SMTPNotifier sends one plain-text mail to all recipients per Send. Port 465
// uses implicit TLS, anything else upgrades with STARTTLS when the server
// offers it.
type SMTPNotifier struct {
	config SMTPConfig
	now    func() time.Time
}

// NewSMTP creates an SMTPNotifier
func NewSMTP(cfg SMTPConfig) *SMTPNotifier {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPNotifier{config: cfg, now: time.Now}
}

// Send implements Notifier
func (n *SMTPNotifier) Send(ctx context.Context, subject, body string) error {
	if len(n.config.Recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	msg, err := n.buildMessage(subject, body)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(n.config.Host, n.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send via %s: %w", net.JoinHostPort(n.config.Host, strconv.Itoa(n.config.Port)), err)
	}

	return nil
}

func (n *SMTPNotifier) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(n.config.Port),
		mail.WithTimeout(30 * time.Second),
		mail.WithHELO(localName()),
		mail.WithTLSConfig(n.tlsConfig()),
	}

	if n.config.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if n.config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.config.Username),
			mail.WithPassword(n.config.Password),
		)
	}

	return opts
}

func (n *SMTPNotifier) tlsConfig() *tls.Config {
	if n.config.TLSConfig != nil {
		return n.config.TLSConfig
	}
	return &tls.Config{ServerName: n.config.Host, MinVersion: tls.VersionTLS12}
}

// buildMessage renders one plain-text message addressed to every recipient
func (n *SMTPNotifier) buildMessage(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.config.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", n.config.From, err)
	}
	if err := msg.To(n.config.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	msg.Subject(subject)
	msg.SetDateWithValue(n.now())
	msg.SetBodyString(mail.TypeTextPlain, body)

	return msg, nil
}

func localName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}
