package session

import (
	"context"
	"io"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/tobyns/CoveChat/internal/gateway"
)

// fakeGateway records subscription churn so the diffing behavior can be
// asserted without a real backend.
type fakeGateway struct {
	subscribed   map[string]int
	unsubscribed map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		subscribed:   make(map[string]int),
		unsubscribed: make(map[string]int),
	}
}

func (f *fakeGateway) track(slot, key string) gateway.Unsubscribe {
	name := slot + ":" + key
	f.subscribed[name]++
	return func() { f.unsubscribed[name]++ }
}

func (f *fakeGateway) SubscribeServers(userID string, onChange func([]gateway.Server)) gateway.Unsubscribe {
	return f.track("servers", userID)
}

func (f *fakeGateway) SubscribeChannels(serverID string, onChange func([]gateway.Channel)) gateway.Unsubscribe {
	return f.track("channels", serverID)
}

func (f *fakeGateway) SubscribeMessages(channelID string, onChange func([]gateway.Message)) gateway.Unsubscribe {
	return f.track("messages", channelID)
}

func (f *fakeGateway) SubscribeConversations(userID string, onChange func([]gateway.DMConversation)) gateway.Unsubscribe {
	return f.track("conversations", userID)
}

func (f *fakeGateway) SubscribeDirectMessages(conversationID string, onChange func([]gateway.DirectMessage)) gateway.Unsubscribe {
	return f.track("dm-messages", conversationID)
}

type fakeTypingHandle struct{ stop gateway.Unsubscribe }

func (h *fakeTypingHandle) Track(displayName string) {}
func (h *fakeTypingHandle) Untrack()                 {}
func (h *fakeTypingHandle) Close()                   { h.stop() }

func (f *fakeGateway) SubscribeTyping(scopeID, userID string, onUpdate func([]gateway.TypingPeer)) gateway.TypingHandle {
	return &fakeTypingHandle{stop: f.track("typing", scopeID)}
}

func (f *fakeGateway) FetchServers(ctx context.Context, userID string) ([]gateway.Server, error) {
	return nil, nil
}

func (f *fakeGateway) CreateServer(ctx context.Context, name, icon, ownerID, ownerName string) (string, error) {
	return "", nil
}

func (f *fakeGateway) ServerByInviteCode(ctx context.Context, code string) (*gateway.Server, error) {
	return nil, gateway.ErrNotFound
}

func (f *fakeGateway) JoinServer(ctx context.Context, serverID, userID, userName string) error {
	return nil
}

func (f *fakeGateway) FetchChannels(ctx context.Context, serverID string) ([]gateway.Channel, error) {
	return nil, nil
}

func (f *fakeGateway) CreateChannel(ctx context.Context, serverID, name, category, requesterID string) (string, error) {
	return "", nil
}

func (f *fakeGateway) FetchMessages(ctx context.Context, channelID string) ([]gateway.Message, error) {
	return nil, nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, channelID string, content string, author gateway.User, attachments []gateway.Attachment) error {
	return nil
}

func (f *fakeGateway) EditMessage(ctx context.Context, messageID, newContent, requesterID string) error {
	return nil
}

func (f *fakeGateway) DeleteMessage(ctx context.Context, messageID, requesterID, serverID string) error {
	return nil
}

func (f *fakeGateway) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	return nil
}

func (f *fakeGateway) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	return nil
}

func (f *fakeGateway) FetchReactions(ctx context.Context, messageID string) ([]gateway.Reaction, error) {
	return nil, nil
}

func (f *fakeGateway) FetchRoles(ctx context.Context, serverID string) ([]gateway.Role, error) {
	return nil, nil
}

func (f *fakeGateway) CreateRole(ctx context.Context, serverID, name, color string, perms gateway.PermissionSet, requesterID string) (string, error) {
	return "", nil
}

func (f *fakeGateway) AssignRole(ctx context.Context, serverID, userID, roleID, requesterID string) error {
	return nil
}

func (f *fakeGateway) FetchMembers(ctx context.Context, serverID string) ([]gateway.Member, error) {
	return nil, nil
}

func (f *fakeGateway) UserPermissions(ctx context.Context, serverID, userID string) (gateway.PermissionSet, error) {
	return gateway.PermissionSet{}, nil
}

func (f *fakeGateway) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*gateway.DMConversation, error) {
	return nil, gateway.ErrNotFound
}

func (f *fakeGateway) FetchConversations(ctx context.Context, userID string) ([]gateway.DMConversation, error) {
	return nil, nil
}

func (f *fakeGateway) FetchDirectMessages(ctx context.Context, conversationID string) ([]gateway.DirectMessage, error) {
	return nil, nil
}

func (f *fakeGateway) SendDirectMessage(ctx context.Context, conversationID, content string, sender gateway.User, attachments []gateway.Attachment) error {
	return nil
}

func (f *fakeGateway) UpdateReadState(ctx context.Context, userID, channelID, lastMessageID string) error {
	return nil
}

func (f *fakeGateway) UpdateDMReadState(ctx context.Context, userID, conversationID, lastMessageID string) error {
	return nil
}

func (f *fakeGateway) UnreadCounts(ctx context.Context, userID string, channelIDs []string) (map[string]int, error) {
	return nil, nil
}

func (f *fakeGateway) DMUnreadCounts(ctx context.Context, userID string, conversationIDs []string) (map[string]int, error) {
	return nil, nil
}

func (f *fakeGateway) UploadFile(ctx context.Context, name string, r io.Reader, userID string) (*gateway.UploadResult, error) {
	return nil, nil
}

func (f *fakeGateway) SearchUsers(ctx context.Context, query, excludeUserID string) ([]gateway.Profile, error) {
	return nil, nil
}

func (f *fakeGateway) UserProfile(ctx context.Context, userID string) (*gateway.Profile, error) {
	return nil, gateway.ErrNotFound
}

func (f *fakeGateway) UpsertProfile(ctx context.Context, userID string, profile gateway.Profile) error {
	return nil
}

func loggedInState() State {
	return State{
		User: &gateway.User{ID: "u1", DisplayName: "alice"},
		Mode: ViewModeServer,
	}
}

func newTestCoordinator(gw gateway.Gateway) *Coordinator {
	return NewCoordinator(gw, func(Action) {}, func([]gateway.TypingPeer) {})
}

func TestCoordinatorNoSubscriptionsWhenLoggedOut(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	coord.Sync(State{Mode: ViewModeServer})

	assert.Equal(t, 0, len(coord.ActiveKeys()))
	assert.Equal(t, 0, len(fake.subscribed))
}

func TestCoordinatorEstablishesDesiredSet(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	state := loggedInState()
	state.ActiveServerID = "s1"
	state.ActiveChannelID = "c1"
	coord.Sync(state)

	keys := coord.ActiveKeys()
	assert.Equal(t, "u1", keys[KindServers])
	assert.Equal(t, "u1", keys[KindConversations])
	assert.Equal(t, "s1", keys[KindChannels])
	assert.Equal(t, "c1", keys[KindMessages])
	assert.Equal(t, "c1", keys[KindTyping])
	assert.Equal(t, 1, fake.subscribed["messages:c1"])
	assert.NotEqual(t, nil, coord.Typing())
}

func TestCoordinatorSyncIsIdempotent(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	state := loggedInState()
	state.ActiveServerID = "s1"
	state.ActiveChannelID = "c1"
	coord.Sync(state)
	coord.Sync(state)
	coord.Sync(state)

	assert.Equal(t, 1, fake.subscribed["servers:u1"])
	assert.Equal(t, 1, fake.subscribed["channels:s1"])
	assert.Equal(t, 1, fake.subscribed["messages:c1"])
	assert.Equal(t, 0, fake.unsubscribed["messages:c1"])
}

func TestCoordinatorRetargetsChangedKeys(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	state := loggedInState()
	state.ActiveServerID = "s1"
	state.ActiveChannelID = "c1"
	coord.Sync(state)

	state.ActiveChannelID = "c2"
	coord.Sync(state)

	assert.Equal(t, 1, fake.unsubscribed["messages:c1"])
	assert.Equal(t, 1, fake.unsubscribed["typing:c1"])
	assert.Equal(t, 1, fake.subscribed["messages:c2"])
	assert.Equal(t, 1, fake.subscribed["typing:c2"])
	// The user-scoped slots are untouched by a channel switch.
	assert.Equal(t, 1, fake.subscribed["servers:u1"])
	assert.Equal(t, 0, fake.unsubscribed["servers:u1"])
}

func TestCoordinatorDMScopeSwitchesTyping(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	state := loggedInState()
	state.ActiveServerID = "s1"
	state.ActiveChannelID = "c1"
	coord.Sync(state)

	state.ActiveConversationID = "d1"
	state.Mode = ViewModeDM
	coord.Sync(state)

	// Channel subscriptions survive in DM mode; typing follows the scope.
	assert.Equal(t, 0, fake.unsubscribed["messages:c1"])
	assert.Equal(t, 1, fake.unsubscribed["typing:c1"])
	assert.Equal(t, 1, fake.subscribed["typing:d1"])
	assert.Equal(t, 1, fake.subscribed["dm-messages:d1"])
}

func TestCoordinatorLogoutTearsDownEverything(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	state := loggedInState()
	state.ActiveServerID = "s1"
	state.ActiveChannelID = "c1"
	state.ActiveConversationID = "d1"
	coord.Sync(state)
	assert.Equal(t, 6, len(coord.ActiveKeys()))

	coord.Sync(State{Mode: ViewModeServer})

	assert.Equal(t, 0, len(coord.ActiveKeys()))
	for name, n := range fake.subscribed {
		assert.Equal(t, n, fake.unsubscribed[name])
	}
	assert.Equal(t, nil, coord.Typing())
}

func TestCoordinatorClose(t *testing.T) {
	fake := newFakeGateway()
	coord := newTestCoordinator(fake)

	state := loggedInState()
	state.ActiveServerID = "s1"
	state.ActiveChannelID = "c1"
	coord.Sync(state)

	coord.Close()

	assert.Equal(t, 0, len(coord.ActiveKeys()))
	for name, n := range fake.subscribed {
		assert.Equal(t, n, fake.unsubscribed[name])
	}
}
