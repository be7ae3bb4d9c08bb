// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"pulse/internal/hands"
	applog "pulse/internal/log"
	"pulse/internal/observe"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 256
	writeTimeout    = time.Second
	maxInbound      = 64 << 10
)

// Message types.
const (
	MessageHands = "hands"
	MessageHello = "hello"
)

// inbound is a message from a client. Only "hands" is acted on.
type inbound struct {
	Type      string        `json:"type"`
	Landmarks []hands.Point `json:"landmarks"`
}

// hello is sent to each client on connect.
type hello struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
}

// WebSocketTransport broadcasts messages as JSON to every client connected
// to /ws and forwards hand detections sent by clients to a HandSink.
type WebSocketTransport struct {
	upgrader websocket.Upgrader
	sink     HandSink
	metrics  *observe.Metrics

	mu      sync.Mutex
	clients map[uuid.UUID]*client

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketTransport starts the broadcast loop. sink may be nil, in which
// case inbound hand messages are ignored; metrics may be nil.
func NewWebSocketTransport(sink HandSink, metrics *observe.Metrics) *WebSocketTransport {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // The page is usually served from another origin.
			},
		},
		sink:      sink,
		metrics:   metrics,
		clients:   make(map[uuid.UUID]*client),
		broadcast: make(chan any, broadcastBuffer),
		done:      make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Serve listens on addr until ctx is cancelled, then closes the transport.
func (wst *WebSocketTransport) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("websocket listen %s: %w", addr, err)
	}
	return wst.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (wst *WebSocketTransport) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: wst.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		applog.Infof("WebSocketTransport: Starting WebSocket server on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		wst.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Hijacked websocket connections are not tracked by the server; Close
		// ends them.
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		if cerr := wst.Close(); err == nil {
			err = cerr
		}
		return err
	}
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(maxInbound)

	c := &client{id: uuid.New(), conn: conn}

	// The greeting is written before the client is visible to the broadcast
	// loop, so writes to conn never overlap.
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(hello{Type: MessageHello, ID: c.id.String()}); err != nil {
		applog.Debugf("WebSocketTransport: Greeting client %s failed: %v", c.id, err)
		conn.Close()
		return
	}

	wst.mu.Lock()
	select {
	case <-wst.done:
		wst.mu.Unlock()
		conn.Close()
		return
	default:
	}
	wst.clients[c.id] = c
	total := len(wst.clients)
	wst.wg.Add(1)
	wst.mu.Unlock()

	wst.metrics.Clients.Add(context.Background(), 1)
	applog.Infof("WebSocketTransport: Client %s connected, total: %d", c.id, total)

	go wst.readLoop(c)
}

// readLoop handles inbound messages until the connection fails, then
// unregisters the client.
func (wst *WebSocketTransport) readLoop(c *client) {
	defer wst.wg.Done()
	defer wst.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				applog.Debugf("WebSocketTransport: Client %s read error: %v", c.id, err)
			}
			return
		}
		wst.handleInbound(c, data)
	}
}

func (wst *WebSocketTransport) handleInbound(c *client, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		applog.Debugf("WebSocketTransport: Client %s sent invalid JSON: %v", c.id, err)
		return
	}
	if msg.Type != MessageHands || wst.sink == nil {
		return
	}
	wst.sink.PublishNormalized(msg.Landmarks)
}

func (wst *WebSocketTransport) remove(c *client) {
	wst.mu.Lock()
	_, ok := wst.clients[c.id]
	delete(wst.clients, c.id)
	total := len(wst.clients)
	wst.mu.Unlock()

	c.conn.Close()
	if ok {
		wst.metrics.Clients.Add(context.Background(), -1)
		applog.Infof("WebSocketTransport: Client %s disconnected, total: %d", c.id, total)
	}
}

// handleBroadcasts encodes each message once and writes it to every client.
// A client that cannot be written to is dropped; its read loop then exits.
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.write(data)
		}
	}
}

func (wst *WebSocketTransport) write(data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		applog.Errorf("WebSocketTransport: Cannot encode %T: %v", data, err)
		return
	}
	msg, err := websocket.NewPreparedMessage(websocket.TextMessage, payload)
	if err != nil {
		applog.Errorf("WebSocketTransport: Cannot prepare message: %v", err)
		return
	}

	wst.mu.Lock()
	targets := make([]*client, 0, len(wst.clients))
	for _, c := range wst.clients {
		targets = append(targets, c)
	}
	wst.mu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	for _, c := range targets {
		c.conn.SetWriteDeadline(deadline)
		if err := c.conn.WritePreparedMessage(msg); err != nil {
			applog.Debugf("WebSocketTransport: Error sending to client %s: %v", c.id, err)
			c.conn.Close()
		}
	}
}

// Send queues data for broadcast. When the queue is full the message is
// dropped and counted.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		wst.metrics.RecordDrop(context.Background(), "websocket")
	}
	return nil
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	return len(wst.clients)
}

// Close disconnects every client, stops the broadcast loop and waits for all
// goroutines owned by the transport.
func (wst *WebSocketTransport) Close() error {
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing")
		wst.mu.Lock()
		close(wst.done)
		for _, c := range wst.clients {
			c.conn.Close()
		}
		wst.mu.Unlock()
	})
	wst.wg.Wait()
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
