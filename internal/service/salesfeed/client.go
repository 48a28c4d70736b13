package salesfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a SalesStream backed by the POS WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	stores         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new POS feed SalesStream.
func New(apiKey, websocketURL string, stores []string, reconnectDelay, pingInterval time.Duration) drepo.SalesStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		stores:         stores,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("salesfeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("salesfeed: connected")
	return nil
}

// Subscribe subscribes to the configured stores.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("salesfeed not connected")
	}
	for _, s := range c.stores {
		msg := map[string]string{"type": "subscribe", "store": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("salesfeed: subscribed %s", s)
	}
	return nil
}

type feedSale struct {
	Item  string  `json:"item"`
	Store string  `json:"store"`
	Qty   float64 `json:"qty"`
	T     int64   `json:"t"` // ms
}

type feedMessage struct {
	Type string     `json:"type"`
	Data []feedSale `json:"data"`
}

// Read streams sales events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.SalesEvent, <-chan error) {
	events := make(chan *models.SalesEvent, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("salesfeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("salesfeed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-sale frames
					continue
				}
				if m.Type != "sale" {
					continue
				}
				for _, d := range m.Data {
					ev := &models.SalesEvent{
						ItemID:    d.Item,
						StoreID:   d.Store,
						Quantity:  d.Qty,
						Timestamp: d.T / 1000,
					}
					select {
					case events <- ev:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return events, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
