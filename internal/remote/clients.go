package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/prudhvinik1/intakesync/internal/models"
)

const defaultApartmentNumber = "1"

// CreateClientRequest is the intake API's client body.
type CreateClientRequest struct {
	BuildingObject     *int64   `json:"building_object"`
	ApartmentNumber    string   `json:"apartment_number"`
	ContactPhone       string   `json:"contact_phone"`
	UsedServices       []string `json:"used_services"`
	InterestedServices []string `json:"interested_services"`
	ProviderRating     *int     `json:"provider_rating"`
	DesiredPrice       *float64 `json:"desired_price"`
	Notes              string   `json:"notes"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
}

type CreateClientResponse struct {
	ID                    int64      `json:"id"`
	EngineerName          string     `json:"engineer_name"`
	BuildingObjectName    string     `json:"building_object_name"`
	BuildingObjectAddress string     `json:"building_object_address"`
	City                  string     `json:"city"`
	ContactPhone          string     `json:"contact_phone"`
	ApartmentNumber       string     `json:"apartment_number"`
	ProviderRating        *int       `json:"provider_rating"`
	DesiredPrice          *float64   `json:"desired_price"`
	Notes                 string     `json:"notes"`
	CreatedAt             *time.Time `json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at"`
}

// NewCreateClientRequest maps a locally captured payload onto the API body.
func NewCreateClientRequest(p models.ClientPayload) CreateClientRequest {
	req := CreateClientRequest{
		BuildingObject:     p.BuildingObjectID,
		ApartmentNumber:    p.ApartmentNumber,
		ContactPhone:       p.Phone,
		UsedServices:       p.UsedServices,
		InterestedServices: p.Services,
		ProviderRating:     p.Rating,
		DesiredPrice:       p.DesiredPrice,
		Notes:              p.Notes,
	}
	if req.ApartmentNumber == "" {
		req.ApartmentNumber = defaultApartmentNumber
	}
	if req.UsedServices == nil {
		req.UsedServices = []string{}
	}
	if req.InterestedServices == nil {
		req.InterestedServices = []string{}
	}
	if p.Location != nil {
		lat, lon := p.Location.Latitude, p.Location.Longitude
		req.Latitude = &lat
		req.Longitude = &lon
	}
	return req
}

// Details converts the response into the server-owned part of a record.
func (r *CreateClientResponse) Details() *models.ServerDetails {
	return &models.ServerDetails{
		EngineerName:          r.EngineerName,
		BuildingObjectName:    r.BuildingObjectName,
		BuildingObjectAddress: r.BuildingObjectAddress,
		City:                  r.City,
		ContactPhone:          r.ContactPhone,
		ApartmentNumber:       r.ApartmentNumber,
		ProviderRating:        r.ProviderRating,
		DesiredPrice:          r.DesiredPrice,
		Notes:                 r.Notes,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// CreateClient submits one client. idempotencyKey lets the API drop a
// replay of a submission it already accepted.
func (c *Client) CreateClient(ctx context.Context, token string, body CreateClientRequest, idempotencyKey string) (*CreateClientResponse, error) {
	req := request{
		operation: "create_client",
		method:    http.MethodPost,
		path:      "/clients/",
		token:     token,
		body:      body,
	}
	if idempotencyKey != "" {
		req.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var resp CreateClientResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
