package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 10 * time.Second

// SMTPConfig holds connection parameters for the SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Secure selects implicit TLS (port 465 style); otherwise STARTTLS is
	// mandatory.
	Secure             bool
	InsecureSkipVerify bool
	PoolSize           int
	// Timeout bounds connection, greeting and each socket operation.
	Timeout time.Duration
}

// SMTPBackend delivers mail through an SMTP relay using go-mail. Connections
// are pooled and reused across sends; the pool is created lazily on first use
// and torn down by Close. A later send creates a fresh pool.
type SMTPBackend struct {
	cfg SMTPConfig

	mu    sync.Mutex
	pool  *smtpPool
	pools int
}

type smtpPool struct {
	idle chan *smtpConn
}

type smtpConn struct {
	pool   *smtpPool
	client *mail.Client
	open   bool
}

func NewSMTPBackend(cfg SMTPConfig) *SMTPBackend {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &SMTPBackend{cfg: cfg}
}

func (b *SMTPBackend) Name() string { return "smtp" }

// Configured reports whether SMTP credentials are present.
func (b *SMTPBackend) Configured() bool {
	return b.cfg.Username != "" && b.cfg.Password != ""
}

func (b *SMTPBackend) Send(ctx context.Context, env Envelope) (string, error) {
	msg, err := b.buildMessage(env)
	if err != nil {
		return "", &SendError{Kind: KindValidation, Backend: b.Name(), Message: "build message", Cause: err}
	}

	conn, err := b.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer b.release(conn)

	if conn.open {
		// The relay may have dropped an idle connection; RSET is a cheap probe
		// that never delivers anything.
		if err := conn.client.Reset(); err != nil {
			_ = conn.client.Close()
			conn.open = false
		}
	}
	if !conn.open {
		if err := conn.client.DialWithContext(ctx); err != nil {
			return "", classifySMTPError(b.Name(), "dial", err)
		}
		conn.open = true
	}

	if err := conn.client.Send(msg); err != nil {
		_ = conn.client.Close()
		conn.open = false
		return "", classifySMTPError(b.Name(), "send", err)
	}
	return msg.GetMessageID(), nil
}

// Close tears down the cached pool. In-flight connections are closed when
// they are released.
func (b *SMTPBackend) Close() error {
	b.mu.Lock()
	p := b.pool
	b.pool = nil
	b.mu.Unlock()

	if p == nil {
		return nil
	}
	var errs []error
	for {
		select {
		case c := <-p.idle:
			if c.open {
				if err := c.client.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		default:
			return errors.Join(errs...)
		}
	}
}

func (b *SMTPBackend) buildMessage(env Envelope) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(b.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(env.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", env.To, err)
	}
	m.Subject(env.Subject)
	m.SetMessageID()
	m.SetDate()

	if env.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, env.Text)
		if env.HTML != "" {
			m.AddAlternativeString(mail.TypeTextHTML, env.HTML)
		}
	} else {
		m.SetBodyString(mail.TypeTextHTML, env.HTML)
	}

	for _, a := range env.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = string(mail.TypeAppOctetStream)
		}
		m.AttachReadSeeker(a.Filename, bytes.NewReader(a.Content),
			mail.WithFileContentType(mail.ContentType(contentType)))
	}
	return m, nil
}

func (b *SMTPBackend) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(b.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(b.cfg.Username),
		mail.WithPassword(b.cfg.Password),
		mail.WithTimeout(b.cfg.Timeout),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         b.cfg.Host,
			InsecureSkipVerify: b.cfg.InsecureSkipVerify, //nolint:gosec // opt-in via SMTP_TLS_REJECT_UNAUTHORIZED=false
			MinVersion:         tls.VersionTLS12,
		}),
	}
	if b.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	c, err := mail.NewClient(b.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return c, nil
}

func (b *SMTPBackend) getPool() (*smtpPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool != nil {
		return b.pool, nil
	}

	p := &smtpPool{idle: make(chan *smtpConn, b.cfg.PoolSize)}
	for i := 0; i < b.cfg.PoolSize; i++ {
		c, err := b.newClient()
		if err != nil {
			return nil, err
		}
		p.idle <- &smtpConn{pool: p, client: c}
	}
	b.pool = p
	b.pools++
	return p, nil
}

func (b *SMTPBackend) acquire(ctx context.Context) (*smtpConn, error) {
	p, err := b.getPool()
	if err != nil {
		return nil, &SendError{Kind: KindNotConfigured, Backend: b.Name(), Message: "create pool", Cause: err}
	}
	select {
	case c := <-p.idle:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *SMTPBackend) release(c *smtpConn) {
	b.mu.Lock()
	current := b.pool
	b.mu.Unlock()

	if c.pool != current {
		if c.open {
			_ = c.client.Close()
		}
		return
	}
	c.pool.idle <- c
}

func classifySMTPError(backend, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Kind: KindTimeout, Backend: backend, Message: op, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &SendError{Kind: KindCanceled, Backend: backend, Message: op, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SendError{Kind: KindTimeout, Backend: backend, Message: op, Cause: err}
	}
	return rejected(backend, op, err)
}
