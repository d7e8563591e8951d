// Package session owns the canonical client-side state for one authenticated
// session. All mutation flows through Store.Apply as typed actions; every
// transition is pure and re-derivable from the latest gateway snapshot, never
// from a delta against possibly-stale prior state.
package session

import "github.com/tobyns/CoveChat/internal/gateway"

// ViewMode selects the rendering context without discarding caches.
type ViewMode string

const (
	ViewModeServer ViewMode = "server"
	ViewModeDM     ViewMode = "dm"
)

// State is the authoritative session snapshot. Slices are replacement
// snapshots from the gateway and must not be mutated in place.
type State struct {
	User *gateway.User

	Servers       []gateway.Server
	Channels      []gateway.Channel
	Messages      []gateway.Message
	Conversations []gateway.DMConversation
	DMMessages    []gateway.DirectMessage
	Members       []gateway.Member

	Permissions gateway.PermissionSet

	// ChannelUnread maps server id -> channel id -> unread count.
	ChannelUnread map[string]map[string]int
	// DMUnread maps conversation id -> unread count.
	DMUnread map[string]int

	ActiveServerID       string
	ActiveChannelID      string
	ActiveConversationID string
	Mode                 ViewMode
}

func initialState() State {
	return State{Mode: ViewModeServer}
}

// ActiveServer resolves the active selection against the current server list.
// Nil when the id is absent, covering a list that updated out from under a
// stale selection.
func (s State) ActiveServer() *gateway.Server {
	for i := range s.Servers {
		if s.Servers[i].ID == s.ActiveServerID {
			return &s.Servers[i]
		}
	}
	return nil
}

// ActiveChannel resolves the active channel, or nil when not in the list.
func (s State) ActiveChannel() *gateway.Channel {
	for i := range s.Channels {
		if s.Channels[i].ID == s.ActiveChannelID {
			return &s.Channels[i]
		}
	}
	return nil
}

// ActiveConversation resolves the active DM conversation, or nil.
func (s State) ActiveConversation() *gateway.DMConversation {
	for i := range s.Conversations {
		if s.Conversations[i].ID == s.ActiveConversationID {
			return &s.Conversations[i]
		}
	}
	return nil
}

// ActiveScopeID is the unit of message subscription and read-state tracking:
// the active channel in server mode, the active conversation in DM mode.
func (s State) ActiveScopeID() string {
	if s.Mode == ViewModeDM {
		return s.ActiveConversationID
	}
	return s.ActiveChannelID
}

// ServerUnreadTotal sums the per-channel unread counts of one server.
func (s State) ServerUnreadTotal(serverID string) int {
	total := 0
	for _, count := range s.ChannelUnread[serverID] {
		total += count
	}
	return total
}

// ChannelUnreadCount reports one channel's unread count within a server.
func (s State) ChannelUnreadCount(serverID, channelID string) int {
	return s.ChannelUnread[serverID][channelID]
}

// DMUnreadTotal sums unread counts across all DM conversations.
func (s State) DMUnreadTotal() int {
	total := 0
	for _, count := range s.DMUnread {
		total += count
	}
	return total
}
