package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// sanitizeHeaderValue removes CR and LF characters to prevent email header
// injection. CRLF sequences in header values can smuggle arbitrary headers.
func sanitizeHeaderValue(value string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(value)
}

// SMTPConfig contains configuration for the SMTP client.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool // Use STARTTLS
	Timeout   time.Duration
}

// SMTPClient implements Sender using SMTP.
type SMTPClient struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	useTLS    bool
	timeout   time.Duration
}

// NewSMTPClient creates a new SMTP client.
func NewSMTPClient(cfg SMTPConfig) *SMTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SMTPClient{
		host:      cfg.Host,
		port:      cfg.Port,
		username:  cfg.Username,
		password:  cfg.Password,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		useTLS:    cfg.UseTLS,
		timeout:   timeout,
	}
}

// Send sends an email using SMTP.
func (c *SMTPClient) Send(ctx context.Context, params SendParams) error {
	if err := params.validate(); err != nil {
		return err
	}

	msg := c.buildMessage(params)
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	done := make(chan error, 1)
	go func() {
		done <- c.sendMail(addr, params.To, msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email: send cancelled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// sendMail handles the actual SMTP connection and sending.
func (c *SMTPClient) sendMail(addr string, to []string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return fmt.Errorf("email: failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		return fmt.Errorf("email: failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("email: HELO failed: %w", err)
	}

	if c.useTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{
				ServerName: c.host,
				MinVersion: tls.VersionTLS12,
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("email: STARTTLS failed: %w", err)
			}
		}
	}

	if c.username != "" && c.password != "" {
		auth := smtp.PlainAuth("", c.username, c.password, c.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("email: authentication failed: %w", err)
		}
	}

	if err := client.Mail(c.fromEmail); err != nil {
		return fmt.Errorf("email: MAIL FROM failed: %w", err)
	}

	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("email: RCPT TO failed for %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("email: DATA command failed: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("email: failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("email: failed to close message: %w", err)
	}

	return client.Quit()
}

// buildMessage constructs the email message with headers and body.
func (c *SMTPClient) buildMessage(params SendParams) []byte {
	var sb strings.Builder

	// All header values sanitized for RFC 5322 compliance
	fromName := sanitizeHeaderValue(c.fromName)
	fromEmail := sanitizeHeaderValue(c.fromEmail)
	subject := sanitizeHeaderValue(params.Subject)
	replyTo := sanitizeHeaderValue(params.ReplyTo)

	to := make([]string, len(params.To))
	for i, addr := range params.To {
		to[i] = sanitizeHeaderValue(addr)
	}

	if fromName != "" {
		sb.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, fromEmail))
	} else {
		sb.WriteString(fmt.Sprintf("From: %s\r\n", fromEmail))
	}

	sb.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))

	if replyTo != "" {
		sb.WriteString(fmt.Sprintf("Reply-To: %s\r\n", replyTo))
	}

	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(params.Text)
	sb.WriteString("\r\n")

	return []byte(sb.String())
}
