// Package mail sends the few messages the server produces: address
// confirmations, login links, forwarded backups and the admin test mail.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	gomail "github.com/wneessen/go-mail"
)

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9+._%-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9-]{0,64}(\.[a-zA-Z0-9][a-zA-Z0-9-]{0,25})+$`)

// ValidateAddress returns common.ErrorInvalidEmail unless address looks like
// a deliverable mailbox.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return common.ErrorInvalidEmail
	}
	return nil
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To         string
	Subject    string
	Text       string
	Attachment *Attachment
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends through an SMTP relay, authenticating when a user is set
// and upgrading to TLS when the relay offers it.
type SMTPMailer struct {
	cfg SMTPConfig
	now func() time.Time
}

// sendMail dials the relay and delivers msg. The dial and the whole SMTP
// exchange stop when ctx is done.
var sendMail = func(ctx context.Context, client *gomail.Client, msg *gomail.Msg) error {
	return client.DialAndSendWithContext(ctx, msg)
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, now: time.Now}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ValidateAddress(msg.To); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm, err := m.build(msg)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	client, err := m.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := sendMail(ctx, client, gm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.User),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	return gomail.NewClient(m.cfg.Host, opts...)
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	gm := gomail.NewMsg()

	var err error
	if m.cfg.FromName != "" {
		err = gm.FromFormat(m.cfg.FromName, m.cfg.From)
	} else {
		err = gm.From(m.cfg.From)
	}
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := gm.To(msg.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	gm.Subject(msg.Subject)
	gm.SetDateWithValue(m.now())
	gm.SetBodyString(gomail.TypeTextPlain, msg.Text)

	if a := msg.Attachment; a != nil {
		if a.Name == "" {
			return nil, errors.New("attachment without name")
		}
		var opts []gomail.FileOption
		if a.ContentType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(a.ContentType)))
		}
		if err := gm.AttachReader(a.Name, bytes.NewReader(a.Data), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return gm, nil
}
