package session

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/tobyns/CoveChat/internal/gateway"
)

func testUser() *gateway.User {
	return &gateway.User{ID: "u1", DisplayName: "alice"}
}

func TestStoreInitialState(t *testing.T) {
	store := NewStore()
	state := store.State()

	assert.Equal(t, (*gateway.User)(nil), state.User)
	assert.Equal(t, ViewModeServer, state.Mode)
	assert.Equal(t, "", state.ActiveServerID)
	assert.Equal(t, "", state.ActiveScopeID())
}

func TestSetUserNilResetsEverything(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1", Name: "cove"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1", Name: "general"}}})
	store.Apply(MessagesLoaded{ChannelID: "c1", Messages: []gateway.Message{{ID: "m1"}}})

	assert.Equal(t, "s1", store.State().ActiveServerID)
	assert.Equal(t, 1, len(store.State().Messages))

	store.Apply(SetUser{User: nil})
	state := store.State()

	assert.Equal(t, (*gateway.User)(nil), state.User)
	assert.Equal(t, 0, len(state.Servers))
	assert.Equal(t, 0, len(state.Messages))
	assert.Equal(t, "", state.ActiveServerID)
	assert.Equal(t, "", state.ActiveChannelID)
	assert.Equal(t, ViewModeServer, state.Mode)
}

func TestSelectServerClearsDependentState(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}, {ID: "s2"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}}})
	store.Apply(MessagesLoaded{ChannelID: "c1", Messages: []gateway.Message{{ID: "m1"}}})
	store.Apply(PermissionsLoaded{ServerID: "s1", Permissions: gateway.Maximal()})
	store.Apply(MembersLoaded{ServerID: "s1", Members: []gateway.Member{{UserID: "u1"}}})

	store.Apply(SelectServer{ServerID: "s2"})
	state := store.State()

	assert.Equal(t, "s2", state.ActiveServerID)
	assert.Equal(t, "", state.ActiveChannelID)
	assert.Equal(t, 0, len(state.Channels))
	assert.Equal(t, 0, len(state.Messages))
	assert.Equal(t, 0, len(state.Members))
	assert.Equal(t, gateway.PermissionSet{}, state.Permissions)
}

func TestSelectServerIdempotent(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}}})
	store.Apply(MessagesLoaded{ChannelID: "c1", Messages: []gateway.Message{{ID: "m1"}}})

	// Reselecting the active server must not wipe the caches.
	store.Apply(SelectServer{ServerID: "s1"})
	state := store.State()

	assert.Equal(t, "c1", state.ActiveChannelID)
	assert.Equal(t, 1, len(state.Channels))
	assert.Equal(t, 1, len(state.Messages))
}

func TestSelectChannelClearsMessages(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}, {ID: "c2"}}})
	store.Apply(MessagesLoaded{ChannelID: "c1", Messages: []gateway.Message{{ID: "m1"}}})

	store.Apply(SelectChannel{ChannelID: "c2"})

	assert.Equal(t, "c2", store.State().ActiveChannelID)
	assert.Equal(t, 0, len(store.State().Messages))
}

func TestStaleMessagesDropped(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}, {ID: "c2"}}})
	store.Apply(SelectChannel{ChannelID: "c2"})

	// A slow response for the previously selected channel arrives late.
	store.Apply(MessagesLoaded{ChannelID: "c1", Messages: []gateway.Message{{ID: "old"}}})
	assert.Equal(t, 0, len(store.State().Messages))

	store.Apply(MessagesLoaded{ChannelID: "c2", Messages: []gateway.Message{{ID: "new"}}})
	assert.Equal(t, 1, len(store.State().Messages))
	assert.Equal(t, "new", store.State().Messages[0].ID)
}

func TestStaleLoadedActionsDroppedForOtherScopes(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "other", Servers: []gateway.Server{{ID: "s9"}}})
	assert.Equal(t, 0, len(store.State().Servers))

	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}}})
	store.Apply(ChannelsLoaded{ServerID: "s9", Channels: []gateway.Channel{{ID: "c9"}}})
	assert.Equal(t, 0, len(store.State().Channels))

	store.Apply(ConversationsLoaded{UserID: "other", Conversations: []gateway.DMConversation{{ID: "d9"}}})
	assert.Equal(t, 0, len(store.State().Conversations))
}

func TestAutoSelectFirstServerAndChannel(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})

	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}, {ID: "s2"}}})
	assert.Equal(t, "s1", store.State().ActiveServerID)

	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}, {ID: "c2"}}})
	assert.Equal(t, "c1", store.State().ActiveChannelID)

	// Subsequent refreshes must not steal an explicit selection.
	store.Apply(SelectChannel{ChannelID: "c2"})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}, {ID: "c2"}}})
	assert.Equal(t, "c2", store.State().ActiveChannelID)
}

func TestSelectConversationSwitchesMode(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1"}}})

	store.Apply(SelectConversation{ConversationID: "d1"})
	state := store.State()

	assert.Equal(t, ViewModeDM, state.Mode)
	assert.Equal(t, "d1", state.ActiveScopeID())
	// Server-side caches survive the mode switch.
	assert.Equal(t, "c1", state.ActiveChannelID)
	assert.Equal(t, 1, len(state.Channels))

	store.Apply(SetViewMode{Mode: ViewModeServer})
	assert.Equal(t, "c1", store.State().ActiveScopeID())
}

func TestUnreadTotals(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1"}, {ID: "s2"}}})

	store.Apply(UnreadLoaded{ServerID: "s1", Counts: map[string]int{"c1": 2, "c2": 5}})
	store.Apply(UnreadLoaded{ServerID: "s2", Counts: map[string]int{"c3": 1}})
	store.Apply(DMUnreadLoaded{Counts: map[string]int{"d1": 4, "d2": 0}})

	state := store.State()
	assert.Equal(t, 7, state.ServerUnreadTotal("s1"))
	assert.Equal(t, 1, state.ServerUnreadTotal("s2"))
	assert.Equal(t, 0, state.ServerUnreadTotal("s3"))
	assert.Equal(t, 5, state.ChannelUnreadCount("s1", "c2"))
	assert.Equal(t, 0, state.ChannelUnreadCount("s1", "missing"))
	assert.Equal(t, 4, state.DMUnreadTotal())

	// Counts for an unknown server are dropped.
	store.Apply(UnreadLoaded{ServerID: "s9", Counts: map[string]int{"c9": 9}})
	assert.Equal(t, 0, store.State().ServerUnreadTotal("s9"))
}

func TestDerivedSelectors(t *testing.T) {
	store := NewStore()
	store.Apply(SetUser{User: testUser()})
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s1", Name: "cove"}}})
	store.Apply(ChannelsLoaded{ServerID: "s1", Channels: []gateway.Channel{{ID: "c1", Name: "general"}}})

	state := store.State()
	assert.Equal(t, "cove", state.ActiveServer().Name)
	assert.Equal(t, "general", state.ActiveChannel().Name)
	assert.Equal(t, (*gateway.DMConversation)(nil), state.ActiveConversation())

	// A server list refresh that no longer contains the selection yields nil.
	store.Apply(ServersLoaded{UserID: "u1", Servers: []gateway.Server{{ID: "s2"}}})
	assert.Equal(t, (*gateway.Server)(nil), store.State().ActiveServer())
}
