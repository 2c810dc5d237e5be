package event

import (
	"sync"
	"time"
)

// Topic names a class of events on the bus.
type Topic string

// Gameplay triggers. Publishing any of these may prompt an autosave.
const (
	TopicLevelUp         Topic = "level-up"
	TopicQuestCompleted  Topic = "quest-completed"
	TopicSceneTransition Topic = "scene-transition"
	TopicGamePaused      Topic = "game-paused"
	TopicFocusLost       Topic = "focus-lost"
)

// Engine lifecycle notifications.
const (
	TopicSaveStarted   Topic = "save-started"
	TopicSaveCompleted Topic = "save-completed"
	TopicSaveFailed    Topic = "save-failed"
	TopicLoadStarted   Topic = "load-started"
	TopicLoadCompleted Topic = "load-completed"
	TopicLoadFailed    Topic = "load-failed"
)

// AutosaveTriggers returns the gameplay topics that prompt an autosave.
func AutosaveTriggers() []Topic {
	return []Topic{
		TopicLevelUp,
		TopicQuestCompleted,
		TopicSceneTransition,
		TopicGamePaused,
		TopicFocusLost,
	}
}

// Topics returns every topic the bus carries.
func Topics() []Topic {
	return []Topic{
		TopicLevelUp,
		TopicQuestCompleted,
		TopicSceneTransition,
		TopicGamePaused,
		TopicFocusLost,
		TopicSaveStarted,
		TopicSaveCompleted,
		TopicSaveFailed,
		TopicLoadStarted,
		TopicLoadCompleted,
		TopicLoadFailed,
	}
}

// Event is a single notification.
type Event struct {
	Topic Topic
	// Slot is the affected save slot. Negative when the event is not
	// slot-scoped (quicksave, gameplay triggers).
	Slot int
	// Reason carries human-readable detail: the trigger description on
	// gameplay topics, the error text on failure topics.
	Reason string
	// At is the publish time, stamped by Publish when zero.
	At time.Time
}

// Handler receives published events. Handlers run in their own
// goroutines and must synchronize any shared state themselves.
type Handler func(Event)

// Bus fans events out to subscribers by topic.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[uint64]Handler
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Topic]map[uint64]Handler),
	}
}

// Subscription is a scoped handle for one subscriber. Closing it
// removes the handler from every topic it was attached to.
type Subscription struct {
	bus    *Bus
	topics []Topic
	id     uint64
	once   sync.Once
}

// Close removes the subscriber. Deliveries already dispatched may
// still arrive; no new ones will. Close is idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		for _, topic := range s.topics {
			delete(s.bus.subs[topic], s.id)
			if len(s.bus.subs[topic]) == 0 {
				delete(s.bus.subs, topic)
			}
		}
	})
}

// Topics returns the topics this subscription is attached to.
func (s *Subscription) Topics() []Topic {
	out := make([]Topic, len(s.topics))
	copy(out, s.topics)
	return out
}

// Subscribe attaches h to the given topics and returns the handle that
// detaches it. With no topics, h receives every topic the bus carries.
func (b *Bus) Subscribe(h Handler, topics ...Topic) *Subscription {
	if len(topics) == 0 {
		topics = Topics()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	sub := &Subscription{bus: b, id: id, topics: make([]Topic, len(topics))}
	copy(sub.topics, topics)

	for _, topic := range topics {
		if b.subs[topic] == nil {
			b.subs[topic] = make(map[uint64]Handler)
		}
		b.subs[topic][id] = h
	}
	return sub
}

// Publish delivers e to every subscriber of its topic, each in its own
// goroutine. Publishing to a topic with no subscribers is a no-op.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.subs[e.Topic] {
		go h(e)
	}
}

// Subscribers reports how many handlers are attached to topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
