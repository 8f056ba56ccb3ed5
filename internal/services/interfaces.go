package services

import (
	"context"
	"encoding/json"

	"github.com/prudhvinik1/intakesync/internal/remote"
)

// ClientAPI is the part of the intake API the reconciler replays against.
type ClientAPI interface {
	CreateClient(ctx context.Context, token string, body remote.CreateClientRequest, idempotencyKey string) (*remote.CreateClientResponse, error)
}

// TokenSource supplies the bearer token and is told when the API rejected it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	HandleAuthFailure(ctx context.Context) error
}

type RefreshAPI interface {
	RefreshToken(ctx context.Context, refreshToken string) (access string, refresh string, err error)
}

type LookupAPI interface {
	FetchLookup(ctx context.Context, token, name string) (json.RawMessage, error)
}

type Pinger interface {
	Ping(ctx context.Context, path string) error
}
