package session

import "github.com/tobyns/CoveChat/internal/gateway"

// Action is a state transition request. Loaded actions carry the scope their
// payload was fetched for, so a late delivery for a stale scope is dropped
// instead of overwriting the current one.
type Action interface{ action() }

// SetUser establishes or clears the authenticated user. A nil user resets
// every piece of downstream state.
type SetUser struct{ User *gateway.User }

// SelectServer activates a server, clearing channel and message caches.
// Reselecting the already-active server is a no-op.
type SelectServer struct{ ServerID string }

// SelectChannel activates a channel, clearing the message cache so stale
// messages are never shown, even transiently.
type SelectChannel struct{ ChannelID string }

// SelectConversation activates a DM conversation and switches to DM mode.
type SelectConversation struct{ ConversationID string }

// SetViewMode toggles the rendering context, preserving all caches.
type SetViewMode struct{ Mode ViewMode }

// ServersLoaded replaces the server list for a user.
type ServersLoaded struct {
	UserID  string
	Servers []gateway.Server
}

// ChannelsLoaded replaces the channel list for a server.
type ChannelsLoaded struct {
	ServerID string
	Channels []gateway.Channel
}

// MessagesLoaded replaces the message list for a channel.
type MessagesLoaded struct {
	ChannelID string
	Messages  []gateway.Message
}

// ConversationsLoaded replaces the DM conversation list for a user.
type ConversationsLoaded struct {
	UserID        string
	Conversations []gateway.DMConversation
}

// DMMessagesLoaded replaces the message list for a conversation.
type DMMessagesLoaded struct {
	ConversationID string
	Messages       []gateway.DirectMessage
}

// MembersLoaded replaces the member roster for a server.
type MembersLoaded struct {
	ServerID string
	Members  []gateway.Member
}

// PermissionsLoaded installs the user's effective permissions for a server.
type PermissionsLoaded struct {
	ServerID    string
	Permissions gateway.PermissionSet
}

// UnreadLoaded installs per-channel unread counts for one server.
type UnreadLoaded struct {
	ServerID string
	Counts   map[string]int
}

// DMUnreadLoaded installs per-conversation unread counts.
type DMUnreadLoaded struct {
	Counts map[string]int
}

func (SetUser) action()             {}
func (SelectServer) action()        {}
func (SelectChannel) action()       {}
func (SelectConversation) action()  {}
func (SetViewMode) action()         {}
func (ServersLoaded) action()       {}
func (ChannelsLoaded) action()      {}
func (MessagesLoaded) action()      {}
func (ConversationsLoaded) action() {}
func (DMMessagesLoaded) action()    {}
func (MembersLoaded) action()       {}
func (PermissionsLoaded) action()   {}
func (UnreadLoaded) action()        {}
func (DMUnreadLoaded) action()      {}
