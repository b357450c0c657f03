package api

import "sync"

// EventType identifies the kind of event carried by a BroadcastEvent.
type EventType string

const (
	// EventTypeState carries hart/CSR state changes.
	EventTypeState EventType = "state"
	// EventTypeOutput carries guest UART output.
	EventTypeOutput EventType = "output"
	// EventTypeExecution carries breakpoint/halt/power events.
	EventTypeExecution EventType = "event"
)

// BroadcastEvent is sent to every matching WebSocket subscriber.
type BroadcastEvent struct {
	Type EventType              `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Subscription is one client's filtered view of the event stream.
type Subscription struct {
	EventTypes map[EventType]bool
	Channel    chan BroadcastEvent
}

// Broadcaster fans events out to every subscribed WebSocket client. There
// is one hart and one bus, so unlike the multi-session original there is
// no per-session routing dimension: every subscription sees every event,
// filtered only by event type.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan BroadcastEvent
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster starts a broadcaster's run loop in a background goroutine.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan BroadcastEvent, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}
				select {
				case sub.Channel <- event:
				default:
					// client too slow, drop the event rather than block the broadcaster
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a new subscription; an empty eventTypes list matches
// every event type.
func (b *Broadcaster) Subscribe(eventTypes []EventType) *Subscription {
	m := make(map[EventType]bool)
	for _, et := range eventTypes {
		m[et] = true
	}
	sub := &Subscription{
		EventTypes: m,
		Channel:    make(chan BroadcastEvent, 64),
	}
	b.register <- sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.unregister <- sub
}

// Broadcast submits an event to be fanned out; it drops the event rather
// than block the caller if the broadcaster is backed up.
func (b *Broadcaster) Broadcast(event BroadcastEvent) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// BroadcastState sends a hart/CSR state snapshot.
func (b *Broadcaster) BroadcastState(data map[string]interface{}) {
	b.Broadcast(BroadcastEvent{Type: EventTypeState, Data: data})
}

// BroadcastOutput sends a chunk of guest UART output.
func (b *Broadcaster) BroadcastOutput(content string) {
	b.Broadcast(BroadcastEvent{
		Type: EventTypeOutput,
		Data: map[string]interface{}{"content": content},
	})
}

// BroadcastExecutionEvent sends a named execution event (breakpoint, halt,
// poweroff) with arbitrary structured detail.
func (b *Broadcaster) BroadcastExecutionEvent(name string, details map[string]interface{}) {
	data := map[string]interface{}{"event": name}
	for k, v := range details {
		data[k] = v
	}
	b.Broadcast(BroadcastEvent{Type: EventTypeExecution, Data: data})
}

// Close shuts the broadcaster down and closes every subscription.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount reports the number of active WebSocket subscribers.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
