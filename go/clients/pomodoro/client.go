// Package pomodoro is the Go client for the pomodoro server.
package pomodoro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/pomodoro/go/internal/gateway"
)

// DefaultURL is where the server listens unless configured otherwise.
const DefaultURL = "ws://127.0.0.1:9001/ws"

// ServerError is the text of an Error response.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Response is a decoded server message. Data stays raw until asked for.
type Response struct {
	Type      gateway.ResponseType `json:"type"`
	Data      json.RawMessage      `json:"data"`
	RequestID string               `json:"request_id,omitempty"`
}

// Text returns the data of Message, Help and Error responses.
func (r Response) Text() string {
	var s string
	if err := json.Unmarshal(r.Data, &s); err != nil {
		return string(r.Data)
	}
	return s
}

// Err converts an Error response into a ServerError.
func (r Response) Err() error {
	if r.Type != gateway.ResponseError {
		return nil
	}
	return &ServerError{Message: r.Text()}
}

// Status decodes a Status response.
func (r Response) Status() (gateway.StatusData, error) {
	var status gateway.StatusData
	if r.Type != gateway.ResponseStatus {
		return status, fmt.Errorf("expected Status response, got %s", r.Type)
	}
	if err := json.Unmarshal(r.Data, &status); err != nil {
		return status, fmt.Errorf("failed to decode status: %w", err)
	}
	return status, nil
}

// List decodes a List response.
func (r Response) List() ([]string, error) {
	var items []string
	if r.Type != gateway.ResponseList {
		return nil, fmt.Errorf("expected List response, got %s", r.Type)
	}
	if err := json.Unmarshal(r.Data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return items, nil
}

// Client holds one websocket connection to the server. Do calls are serialized.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Dial connects to url, for example DefaultURL.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Do sends req with a fresh request ID and waits for its reply, skipping
// status broadcasts that arrive in between.
func (c *Client) Do(ctx context.Context, req gateway.Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req.RequestID = uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return Response{}, fmt.Errorf("failed to send %s: %w", req.Command, err)
	}

	c.conn.SetReadDeadline(deadline)
	for {
		resp, err := c.read()
		if err != nil {
			return Response{}, err
		}
		if resp.RequestID == req.RequestID {
			return resp, nil
		}
	}
}

// Command is a shortcut for Do with only a command name.
func (c *Client) Command(ctx context.Context, name string) (Response, error) {
	return c.Do(ctx, gateway.Request{Command: name})
}

// Watch calls fn for every broadcast until ctx is cancelled or fn returns an
// error. The connection cannot be read again after Watch returns.
func (c *Client) Watch(ctx context.Context, fn func(Response) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	c.conn.SetReadDeadline(time.Time{})
	for {
		resp, err := c.read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if resp.RequestID != "" {
			continue
		}
		if err := fn(resp); err != nil {
			return err
		}
	}
}

func (c *Client) read() (Response, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if closeErr := c.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
