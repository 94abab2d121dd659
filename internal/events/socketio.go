// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultConnectTimeout bounds the wait for the dashboard handshake.
const DefaultConnectTimeout = 15 * time.Second

// SocketIOOptions configures the dashboard connection.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// SocketIOPublisher emits task_state events to a socket.io server.
type SocketIOPublisher struct {
	io *socket.Socket
}

// DialSocketIO connects to the dashboard and waits for the handshake.
func DialSocketIO(ctx context.Context, o SocketIOOptions) (*SocketIOPublisher, error) {
	logger := ctxlog.FromContext(ctx).With("events_url", o.URL)

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse events URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("events URL %q must include scheme and host", o.URL)
	}
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("📡 Connected to event dashboard", "sid", io.Id())
		offerResult(connectChan, nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		offerResult(connectChan, err)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIOPublisher{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// offerResult delivers the first handshake result and drops later ones, so a
// reconnect after the dial returned never blocks the client's goroutine.
func offerResult(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// Publish implements Publisher.
func (p *SocketIOPublisher) Publish(_ context.Context, ev Event) {
	p.io.Emit(EventTaskState, ev.payload())
}

// Close implements Publisher.
func (p *SocketIOPublisher) Close() error {
	p.io.Disconnect()
	return nil
}

// payload is the wire form of an event.
func (ev Event) payload() map[string]any {
	m := map[string]any{
		"task":   ev.Task,
		"kind":   ev.Kind,
		"status": ev.Status,
		"time":   ev.Time.UTC().Format(time.RFC3339Nano),
	}
	if ev.CacheHit {
		m["cache_hit"] = true
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	return m
}
