package remote

import (
	"context"
	"encoding/json"
	"net/http"
)

// FetchLookup reads a reference list such as cities or building-objects.
func (c *Client) FetchLookup(ctx context.Context, token, name string) (json.RawMessage, error) {
	var data json.RawMessage
	err := c.do(ctx, request{
		operation: "lookup",
		method:    http.MethodGet,
		path:      "/" + name + "/",
		token:     token,
	}, &data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Ping reports whether the API answers on path with a 2xx.
func (c *Client) Ping(ctx context.Context, path string) error {
	return c.do(ctx, request{
		operation: "ping",
		method:    http.MethodGet,
		path:      path,
	}, nil)
}
