package remote

import (
	"context"
	"net/http"

	"github.com/prudhvinik1/intakesync/internal/apperr"
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RefreshToken exchanges a refresh token for a new access token. The
// returned refresh token is empty unless the API rotated it.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (access string, refresh string, err error) {
	var resp refreshResponse
	err = c.do(ctx, request{
		operation: "refresh_token",
		method:    http.MethodPost,
		path:      "/auth/refresh/",
		token:     refreshToken,
		body:      refreshRequest{Refresh: refreshToken},
	}, &resp)
	if err != nil {
		return "", "", err
	}
	if resp.Access == "" {
		return "", "", &apperr.AuthError{Message: "refresh response has no access token"}
	}
	return resp.Access, resp.Refresh, nil
}
