package live

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/villxfxni/donation-tracking/internal/core/ports"
)

const defaultReconnectDelay = 5 * time.Second

var errChannelClosed = errors.New("live channel closed")

// Channel implements ports.LiveChannel over one shared WebSocket carrying a
// STOMP session. The first subscription dials the backend; the last
// unsubscribe or Close tears the connection down. Lost connections are
// redialed on a fixed delay, and every successful redial delivers a
// Reconnected signal to all subscribers because frames missed while offline
// are gone for good.
type Channel struct {
	url            string
	log            zerolog.Logger
	reconnectDelay time.Duration

	writeMu sync.Mutex // serializes WriteMessage calls

	mu      sync.Mutex
	subs    map[string]map[int]func(ports.Signal)
	topicID map[string]int
	nextID  int
	conn    *websocket.Conn
	running bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
}

func NewChannel(url string, log zerolog.Logger) *Channel {
	return &Channel{
		url:            url,
		log:            log,
		reconnectDelay: defaultReconnectDelay,
		subs:           make(map[string]map[int]func(ports.Signal)),
		topicID:        make(map[string]int),
	}
}

// Subscribe registers fn for a topic and returns its unsubscribe function.
func (c *Channel) Subscribe(topic string, fn func(ports.Signal)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errChannelClosed
	}

	c.nextID++
	id := c.nextID

	first := len(c.subs[topic]) == 0
	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int]func(ports.Signal))
	}
	c.subs[topic][id] = fn

	if !c.running {
		c.running = true
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.run(c.stop, c.done)
	} else if first && c.conn != nil {
		c.subscribeTopic(c.conn, topic)
	}

	return func() { c.unsubscribe(topic, id) }, nil
}

func (c *Channel) unsubscribe(topic string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	handlers, ok := c.subs[topic]
	if !ok {
		return
	}
	delete(handlers, id)
	if len(handlers) > 0 {
		return
	}

	delete(c.subs, topic)
	if c.conn != nil {
		c.writeFrame(c.conn, frame{
			command: cmdUnsubscribe,
			headers: map[string]string{"id": strconv.Itoa(c.topicID[topic])},
		})
	}
	delete(c.topicID, topic)

	if len(c.subs) == 0 {
		c.teardownLocked()
	}
}

// Close tears down the transport and drops every subscription.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.subs = make(map[string]map[int]func(ports.Signal))
	done := c.done
	c.teardownLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

// teardownLocked stops the connection manager. Caller holds c.mu.
func (c *Channel) teardownLocked() {
	if !c.running {
		return
	}
	c.running = false
	close(c.stop)
	if c.conn != nil {
		c.writeFrame(c.conn, frame{command: cmdDisconnect, headers: map[string]string{}})
		c.conn.Close()
		c.conn = nil
	}
}

// run owns the connection lifecycle: dial, handshake, resubscribe, read until
// failure, then back off and redial. Exits when stop closes.
func (c *Channel) run(stop, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		conn, err := c.connect()
		if err != nil {
			c.log.Warn().Err(err).Msg("live channel dial failed")
			if !c.sleep(stop) {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closedOrStopped(stop) {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		for topic := range c.subs {
			c.subscribeTopic(conn, topic)
		}
		c.mu.Unlock()

		if attempt > 0 {
			c.log.Info().Msg("live channel reconnected")
			c.broadcastReconnected()
		}
		attempt++

		c.readLoop(conn)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		select {
		case <-stop:
			return
		default:
		}
		c.log.Warn().Msg("live channel connection lost")
		if !c.sleep(stop) {
			return
		}
	}
}

// connect dials the WebSocket and completes the STOMP handshake.
func (c *Channel) connect() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return nil, err
	}

	c.writeFrame(conn, frame{
		command: cmdConnect,
		headers: map[string]string{"accept-version": "1.2", "host": "/"},
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, err
		}
		f, err := parseFrame(raw)
		if err != nil || f == nil {
			continue
		}
		switch f.command {
		case cmdConnected:
			return conn, nil
		case cmdError:
			conn.Close()
			return nil, errors.New("stomp handshake rejected: " + f.header("message"))
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := parseFrame(raw)
		if err != nil {
			c.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		if f == nil || f.command != cmdMessage {
			continue
		}
		c.dispatch(ports.Signal{Topic: f.header("destination")})
	}
}

// dispatch runs the topic's handlers in registration order.
func (c *Channel) dispatch(sig ports.Signal) {
	c.mu.Lock()
	handlers := make([]func(ports.Signal), 0, len(c.subs[sig.Topic]))
	for id := 1; id <= c.nextID; id++ {
		if fn, ok := c.subs[sig.Topic][id]; ok {
			handlers = append(handlers, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(sig)
	}
}

func (c *Channel) broadcastReconnected() {
	c.mu.Lock()
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	for _, topic := range topics {
		c.dispatch(ports.Signal{Topic: topic, Reconnected: true})
	}
}

// subscribeTopic sends a SUBSCRIBE frame and records its id. Caller holds c.mu.
func (c *Channel) subscribeTopic(conn *websocket.Conn, topic string) {
	c.nextID++
	c.topicID[topic] = c.nextID
	c.writeFrame(conn, frame{
		command: cmdSubscribe,
		headers: map[string]string{
			"id":          strconv.Itoa(c.topicID[topic]),
			"destination": topic,
		},
	})
}

func (c *Channel) writeFrame(conn *websocket.Conn, f frame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, marshalFrame(f)); err != nil {
		c.log.Debug().Err(err).Str("command", f.command).Msg("frame write failed")
	}
}

func (c *Channel) closedOrStopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return c.closed
	}
}

func (c *Channel) sleep(stop chan struct{}) bool {
	select {
	case <-time.After(c.reconnectDelay):
		return true
	case <-stop:
		return false
	}
}
