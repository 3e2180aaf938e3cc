package line

import (
	"io"
	"log/slog"
	"sync"
)

// PeerQueue is the number of frames buffered for one host. A host that falls
// further behind is dropped.
const PeerQueue = 64

// Hub fans outbound frames out to every attached host. It is the io.Writer
// handed to the protocol interpreter. Each host has its own queue and writer
// goroutine, so Write never blocks on a slow host.
type Hub struct {
	mu     sync.Mutex
	peers  map[int]*peer
	next   int
	logger *slog.Logger
	wg     sync.WaitGroup
}

type peer struct {
	name  string
	w     io.Writer
	queue chan []byte
	drop  func()
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{peers: map[int]*peer{}, logger: logger}
}

// Attach adds a writer. onError, if set, is called once when the peer is
// dropped because a write failed or its queue overflowed. Frames queued before
// detach are still delivered.
func (h *Hub) Attach(name string, w io.Writer, onError func()) (detach func()) {
	pr := &peer{name: name, w: w, queue: make(chan []byte, PeerQueue), drop: onError}
	h.mu.Lock()
	id := h.next
	h.next++
	h.peers[id] = pr
	h.wg.Add(1)
	h.mu.Unlock()

	go h.pump(id, pr)
	return func() { h.remove(id) }
}

func (h *Hub) pump(id int, pr *peer) {
	defer h.wg.Done()
	for frame := range pr.queue {
		if _, err := pr.w.Write(frame); err != nil {
			if h.remove(id) {
				h.logger.Debug("dropping line peer", "peer", pr.name, "error", err)
				if pr.drop != nil {
					pr.drop()
				}
			}
			return
		}
	}
}

// remove detaches peer id and reports whether it was still attached.
func (h *Hub) remove(id int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr, ok := h.peers[id]
	if !ok {
		return false
	}
	delete(h.peers, id)
	close(pr.queue)
	return true
}

// Peers returns the number of attached writers.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Write queues p for every peer. A peer whose queue is full is dropped; Write
// itself never fails or blocks.
func (h *Hub) Write(p []byte) (int, error) {
	frame := append([]byte(nil), p...)
	var overflowed []*peer
	h.mu.Lock()
	for id, pr := range h.peers {
		select {
		case pr.queue <- frame:
		default:
			delete(h.peers, id)
			close(pr.queue)
			overflowed = append(overflowed, pr)
		}
	}
	h.mu.Unlock()
	for _, pr := range overflowed {
		h.logger.Debug("dropping line peer", "peer", pr.name, "error", "queue full")
		if pr.drop != nil {
			pr.drop()
		}
	}
	return len(p), nil
}

// Close detaches every peer and waits until their queued frames are written.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, pr := range h.peers {
		delete(h.peers, id)
		close(pr.queue)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
