package sqlitegw

import "sync"

// notifier fans change signals out to subscribers by topic. Delivery is
// at-least-once with no payload: subscribers refetch the authoritative
// snapshot for their scope, which keeps the consistency model identical to
// the hosted backend's change feed.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func()
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]func())}
}

// subscribe registers fn for a topic and returns its removal func.
func (n *notifier) subscribe(topic string, fn func()) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[int]func())
	}
	n.subs[topic][id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[topic], id)
	}
}

// emit signals every subscriber of the given topics. Each callback runs on
// its own goroutine so a slow subscriber cannot stall a write path.
func (n *notifier) emit(topics ...string) {
	n.mu.Lock()
	var fns []func()
	for _, topic := range topics {
		for _, fn := range n.subs[topic] {
			fns = append(fns, fn)
		}
	}
	n.mu.Unlock()
	for _, fn := range fns {
		go fn()
	}
}

const (
	topicServers       = "servers"
	topicConversations = "dm_conversations"
)

func topicChannels(serverID string) string     { return "channels:" + serverID }
func topicMessages(channelID string) string    { return "messages:" + channelID }
func topicDirectMessages(convID string) string { return "direct_messages:" + convID }
