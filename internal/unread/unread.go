// Package unread reconciles read-state watermarks with message timestamps.
// Rather than marking individual messages read, each user keeps a "read up to
// here" marker per scope; the unread count is the number of messages created
// strictly after it. An absent marker means everything is unread.
package unread

import (
	"context"
	"time"

	"github.com/tobyns/CoveChat/internal/gateway"
)

// CountAfter reports how many messages were created strictly after the
// watermark. A zero watermark counts every message.
func CountAfter(messages []gateway.Message, lastReadAt time.Time) int {
	n := 0
	for _, m := range messages {
		if m.CreatedAt.After(lastReadAt) {
			n++
		}
	}
	return n
}

// Latest returns the most recent message id in the slice, or "" when empty.
// Message lists arrive from the gateway in ascending creation order.
func Latest(messages []gateway.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].ID
}

// LatestDirect is Latest for DM message lists.
func LatestDirect(messages []gateway.DirectMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].ID
}

// Advance moves the user's watermark for an active channel to the newest
// message. Fire-and-forget: persistence failure only risks re-showing an
// unread badge, so the error is returned for logging but must not block
// message display.
func Advance(ctx context.Context, gw gateway.Gateway, userID, channelID string, messages []gateway.Message) error {
	last := Latest(messages)
	if last == "" {
		return nil
	}
	return gw.UpdateReadState(ctx, userID, channelID, last)
}

// AdvanceDM is Advance for an active DM conversation.
func AdvanceDM(ctx context.Context, gw gateway.Gateway, userID, conversationID string, messages []gateway.DirectMessage) error {
	last := LatestDirect(messages)
	if last == "" {
		return nil
	}
	return gw.UpdateDMReadState(ctx, userID, conversationID, last)
}
