package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"testing"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		address string
		ok      bool
	}{
		{"pilot@example.com", true},
		{"first.last+log@mail.example.co.uk", true},
		{"a_b%c-d@x1.nl", true},
		{"", false},
		{"no-at-sign.example.com", false},
		{"pilot@localhost", false},
		{"pilot@-bad.com", false},
		{"two@@example.com", false},
		{"pilot@example.com extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			err := ValidateAddress(tt.address)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrorInvalidEmail)
			}
		})
	}
}

type sentMail struct {
	addr string
	raw  []byte
}

func stubSendMail(t *testing.T, err error) *[]sentMail {
	t.Helper()
	var sent []sentMail
	orig := sendMail
	sendMail = func(ctx context.Context, c *gomail.Client, msg *gomail.Msg) error {
		var buf bytes.Buffer
		if _, werr := msg.WriteTo(&buf); werr != nil {
			return werr
		}
		sent = append(sent, sentMail{addr: c.ServerAddr(), raw: buf.Bytes()})
		return err
	}
	t.Cleanup(func() { sendMail = orig })
	return &sent
}

func newTestMailer() *SMTPMailer {
	m := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		User:     "noreply@example.com",
		Password: "pw",
		From:     "noreply@example.com",
		FromName: "Logbook",
	})
	m.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return m
}

func parse(t *testing.T, raw []byte) *mail.Message {
	t.Helper()
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	return msg
}

func decodeHeader(t *testing.T, v string) string {
	t.Helper()
	out, err := new(mime.WordDecoder).DecodeHeader(v)
	require.NoError(t, err)
	return out
}

func TestSMTPMailer_Send_WithAttachment(t *testing.T) {
	sent := stubSendMail(t, nil)
	m := newTestMailer()

	err := m.Send(context.Background(), Message{
		To:      "pilot@example.com",
		Subject: "Backup",
		Text:    "line one\nline two",
		Attachment: &Attachment{
			Name:        "backup.csv",
			ContentType: "text/csv",
			Data:        []byte("id,orig,dest\n1,EHAM,EGLL\n"),
		},
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", got.addr)

	msg := parse(t, got.raw)
	to, err := msg.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "pilot@example.com", to[0].Address)

	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "noreply@example.com", from[0].Address)
	assert.Equal(t, "Logbook", from[0].Name)
	assert.Equal(t, "Backup", decodeHeader(t, msg.Header.Get("Subject")))

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])

	textPart, err := mr.NextPart()
	require.NoError(t, err)
	text, err := io.ReadAll(textPart)
	require.NoError(t, err)
	assert.Contains(t, string(text), "line one")
	assert.Contains(t, string(text), "line two")

	attPart, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "backup.csv", attPart.FileName())
	attType, _, err := mime.ParseMediaType(attPart.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", attType)

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSMTPMailer_Send_PlainText(t *testing.T) {
	sent := stubSendMail(t, nil)

	require.NoError(t, newTestMailer().Send(context.Background(), Message{
		To:      "pilot@example.com",
		Subject: "Confirm",
		Text:    "open the link",
	}))
	require.Len(t, *sent, 1)

	msg := parse(t, (*sent)[0].raw)
	mediaType, _, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)
	date, err := msg.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestSMTPMailer_Send_InvalidAddress(t *testing.T) {
	sent := stubSendMail(t, nil)

	err := newTestMailer().Send(context.Background(), Message{To: "nope", Subject: "x"})
	assert.ErrorIs(t, err, common.ErrorInvalidEmail)
	assert.Empty(t, *sent)
}

func TestSMTPMailer_Send_TransportError(t *testing.T) {
	stubSendMail(t, errors.New("relay down"))

	err := newTestMailer().Send(context.Background(), Message{To: "pilot@example.com", Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
}

func TestSMTPMailer_Send_CanceledContext(t *testing.T) {
	sent := stubSendMail(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestMailer().Send(ctx, Message{To: "pilot@example.com", Subject: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, *sent)
}

func TestSMTPMailer_Send_ContextReachesTransport(t *testing.T) {
	orig := sendMail
	t.Cleanup(func() { sendMail = orig })

	type ctxKey struct{}
	var seen any
	sendMail = func(ctx context.Context, c *gomail.Client, msg *gomail.Msg) error {
		seen = ctx.Value(ctxKey{})
		return nil
	}

	ctx := context.WithValue(context.Background(), ctxKey{}, "request")
	require.NoError(t, newTestMailer().Send(ctx, Message{To: "pilot@example.com", Subject: "x"}))
	assert.Equal(t, "request", seen)
}

func TestSMTPMailer_Client(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SMTPConfig
		addr    string
		wantErr bool
	}{
		{"with auth", SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u", Password: "p"}, "smtp.example.com:587", false},
		{"without auth", SMTPConfig{Host: "localhost", Port: 25}, "localhost:25", false},
		{"no host", SMTPConfig{Port: 25}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewSMTPMailer(tt.cfg).client()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, c.ServerAddr())
		})
	}
}
