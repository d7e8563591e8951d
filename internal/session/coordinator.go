package session

import "github.com/tobyns/CoveChat/internal/gateway"

// Kind names one subscription slot. The coordinator keeps at most one live
// subscription per kind.
type Kind string

const (
	KindServers       Kind = "servers"
	KindChannels      Kind = "channels"
	KindMessages      Kind = "messages"
	KindConversations Kind = "conversations"
	KindDMMessages    Kind = "dm-messages"
	KindTyping        Kind = "typing"
)

type liveSub struct {
	key  string
	stop func()
}

// Coordinator reconciles the set of live gateway subscriptions against the
// current selection. Sync diffs desired keys against live ones: a slot whose
// key changed is torn down before the replacement is established, and a Sync
// that changes no keys touches nothing, so unrelated state churn never causes
// a resubscribe.
type Coordinator struct {
	gw       gateway.Gateway
	dispatch func(Action)
	onTyping func([]gateway.TypingPeer)
	subs     map[Kind]*liveSub
	typing   gateway.TypingHandle
}

// NewCoordinator wires subscription callbacks to the dispatch func. Callbacks
// may fire from gateway goroutines; dispatch must route them back onto the
// event loop. onTyping receives typing-peer snapshots for the active scope.
func NewCoordinator(gw gateway.Gateway, dispatch func(Action), onTyping func([]gateway.TypingPeer)) *Coordinator {
	return &Coordinator{
		gw:       gw,
		dispatch: dispatch,
		onTyping: onTyping,
		subs:     make(map[Kind]*liveSub),
	}
}

// Sync brings live subscriptions in line with the state's selection.
func (c *Coordinator) Sync(state State) {
	desired := desiredKeys(state)

	// Teardown pass first, so a replaced key never has two live subscriptions.
	for kind, sub := range c.subs {
		if key, ok := desired[kind]; !ok || key != sub.key {
			sub.stop()
			delete(c.subs, kind)
			if kind == KindTyping {
				c.typing = nil
			}
		}
	}

	for kind, key := range desired {
		if _, ok := c.subs[kind]; ok {
			continue
		}
		c.subs[kind] = c.establish(kind, key, state)
	}
}

// Typing exposes the live typing handle for the active scope, or nil.
func (c *Coordinator) Typing() gateway.TypingHandle {
	return c.typing
}

// Close tears down every live subscription. No subscription may outlive the
// session.
func (c *Coordinator) Close() {
	for kind, sub := range c.subs {
		sub.stop()
		delete(c.subs, kind)
	}
	c.typing = nil
}

// ActiveKeys reports the live subscription keys by kind.
func (c *Coordinator) ActiveKeys() map[Kind]string {
	keys := make(map[Kind]string, len(c.subs))
	for kind, sub := range c.subs {
		keys[kind] = sub.key
	}
	return keys
}

func desiredKeys(state State) map[Kind]string {
	desired := make(map[Kind]string, 6)
	if state.User == nil {
		return desired
	}
	desired[KindServers] = state.User.ID
	desired[KindConversations] = state.User.ID
	if state.ActiveServerID != "" {
		desired[KindChannels] = state.ActiveServerID
	}
	if state.ActiveChannelID != "" {
		desired[KindMessages] = state.ActiveChannelID
	}
	if state.ActiveConversationID != "" {
		desired[KindDMMessages] = state.ActiveConversationID
	}
	if scope := state.ActiveScopeID(); scope != "" {
		desired[KindTyping] = scope
	}
	return desired
}

func (c *Coordinator) establish(kind Kind, key string, state State) *liveSub {
	switch kind {
	case KindServers:
		unsub := c.gw.SubscribeServers(key, func(servers []gateway.Server) {
			c.dispatch(ServersLoaded{UserID: key, Servers: servers})
		})
		return &liveSub{key: key, stop: unsub}
	case KindChannels:
		unsub := c.gw.SubscribeChannels(key, func(channels []gateway.Channel) {
			c.dispatch(ChannelsLoaded{ServerID: key, Channels: channels})
		})
		return &liveSub{key: key, stop: unsub}
	case KindMessages:
		unsub := c.gw.SubscribeMessages(key, func(messages []gateway.Message) {
			c.dispatch(MessagesLoaded{ChannelID: key, Messages: messages})
		})
		return &liveSub{key: key, stop: unsub}
	case KindConversations:
		unsub := c.gw.SubscribeConversations(key, func(conversations []gateway.DMConversation) {
			c.dispatch(ConversationsLoaded{UserID: key, Conversations: conversations})
		})
		return &liveSub{key: key, stop: unsub}
	case KindDMMessages:
		unsub := c.gw.SubscribeDirectMessages(key, func(messages []gateway.DirectMessage) {
			c.dispatch(DMMessagesLoaded{ConversationID: key, Messages: messages})
		})
		return &liveSub{key: key, stop: unsub}
	case KindTyping:
		handle := c.gw.SubscribeTyping(key, state.User.ID, c.onTyping)
		c.typing = handle
		return &liveSub{key: key, stop: handle.Close}
	default:
		return &liveSub{key: key, stop: func() {}}
	}
}
