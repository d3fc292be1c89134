package notifications

import "sync"

// EventTypeProgress is the only event type currently emitted.
const EventTypeProgress = "progress"

// ProgressEvent is one normalized progress sample or terminal transition.
type ProgressEvent struct {
	Type     string  `json:"type"`
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Speed    string  `json:"speed"`
	ETA      string  `json:"eta"`
	Filename string  `json:"filename"`
	Title    string  `json:"title"`
}

// Hub fans progress events out to subscribers over buffered channels.
// Publishing never blocks: a subscriber that cannot keep up loses events
// rather than stalling the download workers.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan ProgressEvent
	nextID      int
	buffer      int
	closed      bool
}

// NewHub builds a hub whose subscriber channels hold up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subscribers: make(map[int]chan ProgressEvent),
		buffer:      buffer,
	}
}

// Subscribe registers a consumer. The returned cancel function removes the
// subscription and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ProgressEvent, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer.
func (h *Hub) Publish(event ProgressEvent) {
	if h == nil {
		return
	}
	if event.Type == "" {
		event.Type = EventTypeProgress
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close drops all subscribers and closes their channels. Publish and
// Subscribe become no-ops afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
