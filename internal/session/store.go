package session

import "github.com/tobyns/CoveChat/internal/gateway"

// Store is the single writer of canonical client state. It is driven from the
// UI event loop, so transitions are serialized; Apply routes every action
// through the pure reducer.
type Store struct {
	state State
}

// NewStore returns a store in the unauthenticated initial state.
func NewStore() *Store {
	return &Store{state: initialState()}
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.state
}

// Apply transitions the state by one action.
func (s *Store) Apply(action Action) {
	s.state = reduce(s.state, action)
}

// reduce is the pure transition function. Loaded actions are dropped when
// their scope no longer matches the active selection.
func reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetUser:
		if a.User == nil {
			// Authentication loss invalidates everything derived from it.
			return initialState()
		}
		state.User = a.User
		return state

	case SelectServer:
		if state.ActiveServerID == a.ServerID && state.Mode == ViewModeServer {
			return state
		}
		state.ActiveServerID = a.ServerID
		state.ActiveChannelID = ""
		state.Channels = nil
		state.Messages = nil
		state.Members = nil
		state.Permissions = gateway.PermissionSet{}
		state.Mode = ViewModeServer
		return state

	case SelectChannel:
		if state.ActiveChannelID == a.ChannelID {
			return state
		}
		state.ActiveChannelID = a.ChannelID
		state.Messages = nil
		return state

	case SelectConversation:
		if state.ActiveConversationID == a.ConversationID && state.Mode == ViewModeDM {
			return state
		}
		state.ActiveConversationID = a.ConversationID
		state.DMMessages = nil
		state.Mode = ViewModeDM
		return state

	case SetViewMode:
		state.Mode = a.Mode
		return state

	case ServersLoaded:
		if state.User == nil || state.User.ID != a.UserID {
			return state
		}
		state.Servers = a.Servers
		if state.ActiveServerID == "" && len(a.Servers) > 0 {
			return reduce(state, SelectServer{ServerID: a.Servers[0].ID})
		}
		return state

	case ChannelsLoaded:
		if state.ActiveServerID != a.ServerID {
			return state
		}
		state.Channels = a.Channels
		if state.ActiveChannelID == "" && len(a.Channels) > 0 {
			return reduce(state, SelectChannel{ChannelID: a.Channels[0].ID})
		}
		return state

	case MessagesLoaded:
		if state.ActiveChannelID != a.ChannelID {
			return state
		}
		state.Messages = a.Messages
		return state

	case ConversationsLoaded:
		if state.User == nil || state.User.ID != a.UserID {
			return state
		}
		state.Conversations = a.Conversations
		return state

	case DMMessagesLoaded:
		if state.ActiveConversationID != a.ConversationID {
			return state
		}
		state.DMMessages = a.Messages
		return state

	case MembersLoaded:
		if state.ActiveServerID != a.ServerID {
			return state
		}
		state.Members = a.Members
		return state

	case PermissionsLoaded:
		if state.ActiveServerID != a.ServerID {
			return state
		}
		state.Permissions = a.Permissions
		return state

	case UnreadLoaded:
		if !state.hasServer(a.ServerID) {
			return state
		}
		unread := make(map[string]map[string]int, len(state.ChannelUnread)+1)
		for id, counts := range state.ChannelUnread {
			unread[id] = counts
		}
		unread[a.ServerID] = a.Counts
		state.ChannelUnread = unread
		return state

	case DMUnreadLoaded:
		state.DMUnread = a.Counts
		return state

	default:
		return state
	}
}

func (s State) hasServer(serverID string) bool {
	for i := range s.Servers {
		if s.Servers[i].ID == serverID {
			return true
		}
	}
	return false
}
