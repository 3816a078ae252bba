// Package mailer delivers generated reports by e-mail.
package mailer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attachment is a file carried by a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is one outgoing e-mail.
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

var ErrNoRecipients = errors.New("mailer: no recipients")

// Recipients parses and de-duplicates the addresses in m.To.
func (m Message) Recipients() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, raw := range m.To {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		a, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("recipient %q: %w", raw, err)
		}
		key := strings.ToLower(a.Address)
		if !seen[key] {
			seen[key] = true
			out = append(out, a.Address)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// Build renders m as a multipart/mixed MIME document. Non-ASCII subjects are
// RFC 2047 encoded and file names RFC 2231 encoded.
func Build(from mail.Address, m Message, now time.Time) ([]byte, error) {
	to, err := m.Recipients()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := textproto.MIMEHeader{}
	h.Set("From", from.String())
	h.Set("To", strings.Join(to, ", "))
	h.Set("Subject", mime.BEncoding.Encode("UTF-8", m.Subject))
	h.Set("Date", now.Format(time.RFC1123Z))
	h.Set("Message-ID", "<"+uuid.New().String()+"@"+domainOf(from.Address)+">")
	h.Set("MIME-Version", "1.0")
	h.Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())

	var head bytes.Buffer
	for _, k := range []string{"From", "To", "Subject", "Date", "Message-ID", "MIME-Version", "Content-Type"} {
		fmt.Fprintf(&head, "%s: %s\r\n", k, h.Get(k))
	}
	head.WriteString("\r\n")

	if err := writeBody(mw, m); err != nil {
		return nil, err
	}
	for _, a := range m.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return append(head.Bytes(), buf.Bytes()...), nil
}

func writeBody(mw *multipart.Writer, m Message) error {
	ctype, body := "text/plain; charset=UTF-8", m.Text
	if m.HTML != "" {
		ctype, body = "text/html; charset=UTF-8", m.HTML
	}
	pw, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {ctype},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return fmt.Errorf("body part: %w", err)
	}
	return writeBase64(pw, []byte(body))
}

func writeAttachment(mw *multipart.Writer, a Attachment) error {
	pw, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {attachmentType(a)},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return fmt.Errorf("attachment %s: %w", a.Name, err)
	}
	return writeBase64(pw, a.Data)
}

// attachmentType merges the file name into the declared media type, keeping
// parameters such as charset.
func attachmentType(a Attachment) string {
	mt, params, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		mt, params = "application/octet-stream", map[string]string{}
	}
	params["name"] = a.Name
	if v := mime.FormatMediaType(mt, params); v != "" {
		return v
	}
	return "application/octet-stream"
}

// writeBase64 wraps encoded output at 76 columns.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := w.Write([]byte(enc[:76] + "\r\n")); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := w.Write([]byte(enc + "\r\n"))
	return err
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
