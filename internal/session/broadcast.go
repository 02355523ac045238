package session

import (
	"sync"

	"github.com/smartstudy/studycam/internal/logger"
	"github.com/smartstudy/studycam/internal/metrics"
)

// Broadcaster fans annotated JPEG frames out to stream clients. The tick
// loop pushes one frame per tick; viewers subscribe and unsubscribe
// without ever touching the loop's lifecycle.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[int]chan []byte
	nextID  int
	latest  []byte
	metrics *metrics.Metrics
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		clients: make(map[int]chan []byte),
		metrics: m,
	}
}

// Subscribe adds a new client and returns a channel for receiving frames.
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, 2) // Buffer 2 frames to avoid blocking
	b.clients[id] = ch

	if b.metrics != nil {
		b.metrics.StreamClients.Store(uint64(len(b.clients)))
	}
	logger.Debug("Broadcaster", "Client #%d subscribed (total clients: %d)", id, len(b.clients))
	return id, ch
}

// Unsubscribe removes a client.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		if b.metrics != nil {
			b.metrics.StreamClients.Store(uint64(len(b.clients)))
		}
		logger.Debug("Broadcaster", "Client #%d unsubscribed (remaining clients: %d)", id, len(b.clients))
	}
}

// Publish delivers a frame to every client, dropping it for clients that
// cannot keep up.
func (b *Broadcaster) Publish(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = frame
	for _, ch := range b.clients {
		select {
		case ch <- frame:
		default:
			// Client too slow, skip this frame for this client
			if b.metrics != nil {
				b.metrics.FramesDropped.Add(1)
			}
		}
	}
}

// Latest returns the most recently published frame, nil before the
// first tick.
func (b *Broadcaster) Latest() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}
