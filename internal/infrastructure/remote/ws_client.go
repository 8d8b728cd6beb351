package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

var (
	ErrChannelHandshake = errors.New("channel: handshake failed")
	ErrChannelClosed    = errors.New("channel: closed")
)

type WSConfig struct {
	// PageURL is the page the channels belong to; scheme and host are reused.
	PageURL          *url.URL
	Cookie           string
	HandshakeTimeout time.Duration
	Logger           *logger.Logger
}

// WSDialer opens push channels as WebSocket connections next to the page.
type WSDialer struct {
	config WSConfig
	dialer *websocket.Dialer
}

func NewWSDialer(cfg WSConfig) *WSDialer {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &WSDialer{
		config: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// ChannelURL resolves path against the page origin: wss for https pages,
// ws otherwise.
func ChannelURL(page *url.URL, path string) (string, error) {
	if page == nil || page.Host == "" {
		return "", fmt.Errorf("page URL has no host")
	}
	scheme := "ws"
	if page.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: page.Host, Path: path}
	return u.String(), nil
}

func (d *WSDialer) Dial(ctx context.Context, path string) (ports.Channel, error) {
	target, err := ChannelURL(d.config.PageURL, path)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Origin", (&url.URL{Scheme: d.config.PageURL.Scheme, Host: d.config.PageURL.Host}).String())
	if d.config.Cookie != "" {
		header.Set("Cookie", d.config.Cookie)
	}

	d.config.Logger.Debugw("channel_dial", "url", target)
	conn, resp, err := d.dialer.DialContext(ctx, target, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			resp.Body.Close()
		}
		d.config.Logger.Debugw("channel_dial_failed", "url", target, "status", status, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrChannelHandshake, target, err)
	}
	d.config.Logger.Debugw("channel_dial_ok", "url", target)

	return &WSChannel{conn: conn, url: target}, nil
}

// WSChannel is one WebSocket connection. Writes are serialized; a single
// goroutine may read concurrently with writers.
type WSChannel struct {
	conn *websocket.Conn
	url  string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *WSChannel) SendJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send on %s: %w", c.url, err)
	}
	return nil
}

func (c *WSChannel) Receive() ([]byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrChannelClosed
			}
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *WSChannel) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *WSChannel) URL() string {
	return c.url
}
