package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"gopkg.in/mail.v2"

	"SignalDesk/internal/exporter"
	"SignalDesk/internal/model"
)

// Dialer sends composed messages. *mail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// EmailNotifier mails the report as an HTML table. When AttachName is set, the workbook of
// the same report is built in memory and attached under that name.
type EmailNotifier struct {
	From       string
	To         []string
	Subject    string
	AttachName string
	Dialer     Dialer
}

// NewEmailNotifier creates a notifier sending through host:port. Port 465 uses implicit TLS.
func NewEmailNotifier(host string, port int, username, password, from string, to []string, subject, attachName string) *EmailNotifier {
	return &EmailNotifier{
		From:       from,
		To:         to,
		Subject:    subject,
		AttachName: attachName,
		Dialer:     mail.NewDialer(host, port, username, password),
	}
}

func (e *EmailNotifier) Name() string { return "email" }

// Notify composes and sends one message to all recipients.
func (e *EmailNotifier) Notify(ctx context.Context, rep *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := e.compose(rep)
	if err != nil {
		return err
	}
	if err := e.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	log.Info().Strs("to", e.To).Int("rows", len(rep.Rows)).Msg("report mailed")
	return nil
}

func (e *EmailNotifier) compose(rep *model.Report) (*mail.Message, error) {
	body, err := FormatHTMLReport(rep)
	if err != nil {
		return nil, err
	}

	m := mail.NewMessage()
	m.SetHeader("From", e.From)
	m.SetHeader("To", e.To...)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/html", body)

	if e.AttachName != "" {
		data, err := workbookBytes(rep)
		if err != nil {
			log.Warn().Err(err).Str("run_id", rep.RunID).Msg("build workbook, mailing without attachment")
		} else {
			m.Attach(e.AttachName, mail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}))
		}
	}
	return m, nil
}

func workbookBytes(rep *model.Report) ([]byte, error) {
	f, err := exporter.Workbook(rep)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
