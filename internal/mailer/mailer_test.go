package mailer

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-report-go/internal/logger"
)

func TestRecipients(t *testing.T) {
	to, err := Message{To: []string{"a@x.com", " A@X.com ", "", "홍길동 <b@x.com>"}}.Recipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, to)

	_, err = Message{To: []string{" "}}.Recipients()
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = Message{To: []string{"not an address"}}.Recipients()
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	msg := Message{
		To:          []string{"hr@example.com"},
		Subject:     "조직효과성 진단 결과",
		HTML:        "<p>첨부를 확인하세요</p>",
		Attachments: []Attachment{{Name: "영업팀_조직효과성진단.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}},
	}
	raw, err := Build(mail.Address{Name: "리포트", Address: "noreply@example.com"}, msg, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "조직효과성 진단 결과", subject)
	assert.Equal(t, "hr@example.com", parsed.Header.Get("To"))
	assert.Contains(t, parsed.Header.Get("Message-ID"), "@example.com>")

	mt, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mt)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	assert.Contains(t, body.Header.Get("Content-Type"), "text/html")
	html, _ := io.ReadAll(body)
	assert.NotEmpty(t, html)

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "영업팀_조직효과성진단.pdf", att.FileName())
	data, _ := io.ReadAll(att)
	// multipart.Reader decodes quoted-printable only, so the payload is still base64
	assert.Equal(t, "JVBERi0xLjQ=", strings.TrimSpace(string(data)))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuildAttachmentWithParameters(t *testing.T) {
	msg := Message{
		To:   []string{"hr@example.com"},
		HTML: "<p>본문</p>",
		Attachments: []Attachment{
			{Name: "영업1_2팀_조직효과성진단.html", ContentType: "text/html; charset=utf-8", Data: []byte("<html></html>")},
			{Name: "raw.bin", ContentType: "not a type;;", Data: []byte{1}},
		},
	}
	raw, err := Build(mail.Address{Address: "noreply@example.com"}, msg, time.Now())
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	_, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	mr := multipart.NewReader(parsed.Body, params["boundary"])
	_, err = mr.NextPart()
	require.NoError(t, err)

	tests := []struct {
		mediaType string
		params    map[string]string
	}{
		{mediaType: "text/html", params: map[string]string{"charset": "utf-8", "name": "영업1_2팀_조직효과성진단.html"}},
		{mediaType: "application/octet-stream", params: map[string]string{"name": "raw.bin"}},
	}
	for _, tt := range tests {
		part, err := mr.NextPart()
		require.NoError(t, err)
		require.NotEmpty(t, part.Header.Get("Content-Type"))
		mt, got, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, tt.mediaType, mt)
		assert.Equal(t, tt.params, got)
	}
}

func TestWriteBase64Wraps(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, writeBase64(&sb, make([]byte, 120)))
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}

func TestSendRetriesTransientErrors(t *testing.T) {
	calls := 0
	m := New(Config{Host: "smtp.example.com", From: "noreply@example.com", MaxElapsed: 5 * time.Second}, logger.Discard()).
		WithTransport(func(_ context.Context, _ Config, from string, to []string, msg []byte) error {
			calls++
			assert.Equal(t, "noreply@example.com", from)
			assert.Equal(t, []string{"a@example.com"}, to)
			if calls < 2 {
				return errors.New("connection reset")
			}
			return nil
		})
	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", Text: "t"}))
	assert.Equal(t, 2, calls)
}

func TestSendPermanentFailure(t *testing.T) {
	calls := 0
	m := New(Config{Host: "smtp.example.com", From: "noreply@example.com"}, logger.Discard()).
		WithTransport(func(context.Context, Config, string, []string, []byte) error {
			calls++
			return &textproto.Error{Code: 535, Msg: "authentication failed"}
		})
	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSendNotConfigured(t *testing.T) {
	err := New(Config{}, logger.Discard()).Send(context.Background(), Message{To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
