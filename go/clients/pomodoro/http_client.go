package pomodoro

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/pomodoro/go/clients"
	"github.com/mcdev12/pomodoro/go/internal/gateway"
)

// DefaultHTTPURL is the HTTP side of DefaultURL.
const DefaultHTTPURL = "http://127.0.0.1:9001"

// Health is the body of GET /health.
type Health struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// HTTPClient reads server state over plain HTTP.
type HTTPClient struct {
	*clients.BaseClient
}

func NewHTTPClient(baseURL string) *HTTPClient {
	base := clients.NewBaseClient(baseURL)
	base.SetHeader("Accept", "application/json")
	return &HTTPClient{BaseClient: base}
}

func (c *HTTPClient) Health(ctx context.Context) (Health, error) {
	var health Health
	body, err := c.Get(ctx, "/health")
	if err != nil {
		return health, err
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return health, fmt.Errorf("failed to decode health: %w", err)
	}
	return health, nil
}

// Session returns the current status without opening a websocket.
func (c *HTTPClient) Session(ctx context.Context) (gateway.StatusData, error) {
	body, err := c.Get(ctx, "/api/session")
	if err != nil {
		return gateway.StatusData{}, err
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return gateway.StatusData{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return resp.Status()
}
