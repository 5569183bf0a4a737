package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/logs"
	"github.com/Scrimzay/conquestsim/internal/world"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one subscriber connection. Frames are queued on send and
// written by the client's own write pump.
type Client struct {
	conn     *websocket.Conn
	encoding Encoding
	player   world.PlayerID // empty for spectators

	mu     sync.Mutex
	send   chan frame
	closed bool
}

func newClient(conn *websocket.Conn, enc Encoding, player world.PlayerID) *Client {
	return &Client{conn: conn, encoding: enc, player: player, send: make(chan frame, sendBuffer)}
}

// enqueue reports false if the client is gone or its buffer is full.
func (c *Client) enqueue(f frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(f.msgType, f.data); err != nil {
				logs.Debug("ws write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans snapshots out to every registered client. Only Run touches the
// client set.
type Hub struct {
	source   func() world.Snapshot
	encoder  *frameEncoder
	clients  map[*Client]bool
	register chan *Client
	leave    chan *Client
	publish  chan world.Snapshot
	last     map[Encoding]frame
	count    chan int
	done     chan struct{}
}

// NewHub takes the snapshot source used to greet each new client with the
// current state.
func NewHub(source func() world.Snapshot) (*Hub, error) {
	enc, err := newFrameEncoder()
	if err != nil {
		return nil, err
	}
	return &Hub{
		source:   source,
		encoder:  enc,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		leave:    make(chan *Client),
		publish:  make(chan world.Snapshot, 4),
		count:    make(chan int),
		done:     make(chan struct{}),
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
			}
			h.clients = map[*Client]bool{}
			return

		case c := <-h.register:
			h.clients[c] = true
			greeting := h.last
			if h.source != nil {
				if frames, err := h.encoder.encode(h.source()); err == nil {
					greeting = frames
				}
			}
			if f, ok := greeting[c.encoding]; ok {
				c.enqueue(f)
			}

		case c := <-h.leave:
			if h.clients[c] {
				delete(h.clients, c)
				c.close()
			}

		case s := <-h.publish:
			// coalesce a burst of publishes into the newest snapshot
			for drained := false; !drained; {
				select {
				case s = <-h.publish:
				default:
					drained = true
				}
			}
			if !h.encodeLast(s) {
				continue
			}
			for c := range h.clients {
				if !c.enqueue(h.last[c.encoding]) {
					logs.Debug("dropping slow subscriber", zap.String("encoding", string(c.encoding)))
					delete(h.clients, c)
					c.close()
				}
			}

		case h.count <- len(h.clients):
		}
	}
}

func (h *Hub) encodeLast(s world.Snapshot) bool {
	frames, err := h.encoder.encode(s)
	if err != nil {
		logs.Error("snapshot encode failed", zap.Error(err))
		return false
	}
	h.last = frames
	return true
}

// Publish never blocks: when the queue is full the oldest pending snapshot
// is discarded, since only the newest one matters.
func (h *Hub) Publish(s world.Snapshot) {
	for {
		select {
		case h.publish <- s:
			return
		case <-h.done:
			return
		default:
			select {
			case <-h.publish:
			default:
			}
		}
	}
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// Clients reports the number of live subscribers, 0 once stopped.
func (h *Hub) Clients() int {
	select {
	case n := <-h.count:
		return n
	case <-h.done:
		return 0
	}
}
