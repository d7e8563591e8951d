package client

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/tobyns/CoveChat/internal/gateway"
)

func TestPickServer(t *testing.T) {
	servers := []gateway.Server{
		{ID: "s1", Name: "Cove"},
		{ID: "s2", Name: "Side Project"},
	}

	assert.Equal(t, "s1", pickServer(servers, "1").ID)
	assert.Equal(t, "s2", pickServer(servers, "2").ID)
	assert.Equal(t, "s2", pickServer(servers, "side project").ID)
	assert.Equal(t, (*gateway.Server)(nil), pickServer(servers, "3"))
	assert.Equal(t, (*gateway.Server)(nil), pickServer(servers, "nope"))
}

func TestPickChannelAcceptsHashPrefix(t *testing.T) {
	channels := []gateway.Channel{
		{ID: "c1", Name: "general"},
		{ID: "c2", Name: "project-updates"},
	}

	assert.Equal(t, "c1", pickChannel(channels, "general").ID)
	assert.Equal(t, "c2", pickChannel(channels, "#project-updates").ID)
	assert.Equal(t, "c2", pickChannel(channels, "2").ID)
	assert.Equal(t, (*gateway.Channel)(nil), pickChannel(channels, "#missing"))
}

func TestLongestCommonPrefix(t *testing.T) {
	assert.Equal(t, "", longestCommonPrefix(nil))
	assert.Equal(t, "/create-", longestCommonPrefix([]string{"/create-server", "/create-channel", "/create-role"}))
	assert.Equal(t, "/quit", longestCommonPrefix([]string{"/quit"}))
	assert.Equal(t, "/", longestCommonPrefix([]string{"/dm", "/join"}))
}

func TestAttachmentMarkdown(t *testing.T) {
	image := gateway.Attachment{URL: "attachments/u1/1.png", Name: "shot.png", MimeType: "image/png"}
	assert.Equal(t, "![shot.png](attachments/u1/1.png)", attachmentMarkdown(image))

	doc := gateway.Attachment{URL: "attachments/u1/2.pdf", Name: "spec.pdf", MimeType: "application/pdf"}
	assert.Equal(t, "[spec.pdf](attachments/u1/2.pdf)", attachmentMarkdown(doc))
}

func TestBadgeClampsAt99(t *testing.T) {
	assert.Equal(t, "", badge(0))
	assert.Equal(t, "", badge(-1))
	assert.Equal(t, " (1)", badge(1))
	assert.Equal(t, " (99)", badge(99))
	assert.Equal(t, " (99+)", badge(100))
	assert.Equal(t, " (99+)", badge(4000))
}

func TestIsCommand(t *testing.T) {
	assert.Equal(t, true, isCommand("/help", '/'))
	assert.Equal(t, false, isCommand("hello /help", '/'))
	assert.Equal(t, false, isCommand("", '/'))
	assert.Equal(t, true, isCommand("!help", '!'))
}
