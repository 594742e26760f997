package session

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/jrsteele09/go-auth-client/autherror"
)

// AuthorizationResponseType is the message type carrying an authorize response.
const AuthorizationResponseType = "authorization_response"

// Message is a cross-window message relayed from the browser. It is untrusted.
type Message struct {
	Origin   string
	Type     string
	Response map[string]string
}

// MessageChannel waits for authorize responses relayed as messages. Messages
// from another origin, of another type, or for an unknown state are ignored.
type MessageChannel struct {
	origin      string
	messageType string

	mu      sync.Mutex
	waiters map[string]chan map[string]string
}

// MessageOption configures a MessageChannel.
type MessageOption func(*MessageChannel)

// WithMessageType overrides the expected message type.
func WithMessageType(t string) MessageOption {
	return func(m *MessageChannel) {
		if t != "" {
			m.messageType = t
		}
	}
}

// NewMessageChannel accepts messages from origin, usually the tenant base URL.
func NewMessageChannel(origin string, opts ...MessageOption) *MessageChannel {
	m := &MessageChannel{
		origin:      strings.TrimRight(origin, "/"),
		messageType: AuthorizationResponseType,
		waiters:     make(map[string]chan map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Await registers interest in req.State and blocks until a matching message is
// delivered or ctx ends. The request URL must be loaded by the browser side.
func (m *MessageChannel) Await(ctx context.Context, req ChannelRequest) (string, error) {
	if req.State == "" {
		return "", autherror.Configuration("state is required to correlate messages")
	}
	ch := make(chan map[string]string, 1)

	m.mu.Lock()
	if _, exists := m.waiters[req.State]; exists {
		m.mu.Unlock()
		return "", autherror.Configuration("a renewal for this state is already waiting")
	}
	m.waiters[req.State] = ch
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.waiters, req.State)
		m.mu.Unlock()
	}()

	select {
	case response := <-ch:
		values := url.Values{}
		for k, v := range response {
			values.Set(k, v)
		}
		return values.Encode(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Deliver routes msg to the renewal waiting for its state and reports whether
// it was accepted.
func (m *MessageChannel) Deliver(msg Message) bool {
	if strings.TrimRight(msg.Origin, "/") != m.origin || msg.Type != m.messageType {
		return false
	}
	state := msg.Response["state"]
	if state == "" {
		return false
	}

	m.mu.Lock()
	ch, ok := m.waiters[state]
	if ok {
		delete(m.waiters, state)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	ch <- msg.Response
	return true
}

// Pending returns the number of renewals waiting for a message.
func (m *MessageChannel) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters)
}
