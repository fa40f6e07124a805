package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactMessage(t *testing.T) {
	form := ContactForm{
		FirstName:      "Ana",
		LastName:       "<b>Lee</b>",
		Phone:          "555",
		Description:    "Is parking available?",
		ViewerEmail:    "ana@example.com",
		OrganizerEmail: "org@example.com",
	}
	msg, err := ContactMessage(form, "office@example.com")
	require.NoError(t, err)

	assert.Equal(t, "org@example.com", msg.To)
	assert.Equal(t, "office@example.com", msg.From)
	assert.Equal(t, "ana@example.com", msg.ReplyTo)
	assert.Equal(t, "Query from Ana", msg.Subject)
	assert.Contains(t, msg.HTML, "Is parking available?")
	assert.Contains(t, msg.HTML, "&lt;b&gt;Lee&lt;/b&gt;")
	assert.NotContains(t, msg.HTML, "<b>Lee</b>")
}

func TestBuildMessage(t *testing.T) {
	raw, err := buildMessage(Message{
		To:      "org@example.com",
		From:    "office@example.com",
		ReplyTo: "ana@example.com",
		Subject: "Query from Ana",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)

	s := string(raw)
	head, body, ok := strings.Cut(s, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "Reply-To: ana@example.com\r\n")
	assert.Contains(t, head, "Subject: Query from Ana\r\n")
	assert.Contains(t, head, `Content-Type: text/html; charset="UTF-8"`)
	assert.Equal(t, "<p>hi</p>", body)
}

func TestBuildMessage_NoReplyTo(t *testing.T) {
	raw, err := buildMessage(Message{To: "a@b.c", From: "d@e.f", Subject: "x"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Reply-To")
}

func TestBuildMessage_RejectsHeaderInjection(t *testing.T) {
	_, err := buildMessage(Message{
		To:      "org@example.com",
		From:    "office@example.com",
		Subject: "hi\r\nBcc: victim@example.com",
	})
	assert.ErrorIs(t, err, ErrHeaderInjection)
}

func TestAddressOf(t *testing.T) {
	assert.Equal(t, "a@b.c", addressOf("Office <a@b.c>"))
	assert.Equal(t, "a@b.c", addressOf("a@b.c"))
}
