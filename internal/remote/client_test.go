package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://intake.example.com/api"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(testBaseURL, 5*time.Second)
	gock.InterceptClient(c.HTTPClient())
	t.Cleanup(gock.Off)
	return c
}

func TestNewCreateClientRequest_Defaults(t *testing.T) {
	req := NewCreateClientRequest(models.ClientPayload{Name: "A", Phone: "123"})

	assert.Equal(t, "1", req.ApartmentNumber)
	assert.Equal(t, "123", req.ContactPhone)
	assert.Equal(t, []string{}, req.UsedServices)
	assert.Equal(t, []string{}, req.InterestedServices)
	assert.Nil(t, req.BuildingObject)
	assert.Nil(t, req.ProviderRating)
	assert.Nil(t, req.Latitude)
	assert.Nil(t, req.Longitude)
}

func TestNewCreateClientRequest_MapsFields(t *testing.T) {
	building := int64(7)
	rating := 5
	price := 1500.0
	payload := models.ClientPayload{
		Name:             "A",
		Phone:            "+77001234567",
		BuildingObjectID: &building,
		ApartmentNumber:  "12",
		Services:         []string{"cctv"},
		UsedServices:     []string{"intercom"},
		Rating:           &rating,
		DesiredPrice:     &price,
		Notes:            "needs a quote",
		Location:         &models.GeoLocation{Latitude: 43.25, Longitude: 76.95},
		Draft:            &models.DraftMeta{DraftKey: "d1"},
	}

	req := NewCreateClientRequest(payload)

	assert.Equal(t, int64(7), *req.BuildingObject)
	assert.Equal(t, "12", req.ApartmentNumber)
	assert.Equal(t, []string{"cctv"}, req.InterestedServices)
	assert.Equal(t, []string{"intercom"}, req.UsedServices)
	assert.Equal(t, 5, *req.ProviderRating)
	assert.Equal(t, 1500.0, *req.DesiredPrice)
	assert.Equal(t, "needs a quote", req.Notes)
	assert.Equal(t, 43.25, *req.Latitude)
	assert.Equal(t, 76.95, *req.Longitude)
}

func TestCreateClient_Success(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/clients/").
		MatchHeader("Authorization", "^Bearer access-1$").
		MatchHeader("Idempotency-Key", "^key-1$").
		JSON(map[string]any{
			"building_object":     nil,
			"apartment_number":    "1",
			"contact_phone":       "123",
			"used_services":       []any{},
			"interested_services": []any{},
			"provider_rating":     nil,
			"desired_price":       nil,
			"notes":               "",
			"latitude":            nil,
			"longitude":           nil,
		}).
		Reply(201).
		JSON(map[string]any{"id": 42, "city": "Almaty", "engineer_name": "Ivanov"})

	resp, err := c.CreateClient(context.Background(), "access-1",
		NewCreateClientRequest(models.ClientPayload{Name: "A", Phone: "123"}), "key-1")

	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "Almaty", resp.Details().City)
	assert.Equal(t, "Ivanov", resp.Details().EngineerName)
	assert.True(t, gock.IsDone())
}

func TestCreateClient_ErrorUsesDetail(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/clients/").
		Reply(400).
		JSON(map[string]any{"detail": "building object does not exist"})

	_, err := c.CreateClient(context.Background(), "tok", CreateClientRequest{}, "")

	var netErr *apperr.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 400, netErr.StatusCode)
	assert.Equal(t, "building object does not exist", netErr.Error())
}

func TestCreateClient_ErrorWithoutJSONBody(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/clients/").
		Reply(502).
		BodyString("<html>bad gateway</html>")

	_, err := c.CreateClient(context.Background(), "tok", CreateClientRequest{}, "")

	var netErr *apperr.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "HTTP 502", netErr.Error())
}

func TestCreateClient_UnauthorizedIsAuthError(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/clients/").
		Reply(401).
		JSON(map[string]any{"detail": "Given token not valid for any token type"})

	_, err := c.CreateClient(context.Background(), "expired", CreateClientRequest{}, "")

	assert.True(t, apperr.IsAuth(err))
	assert.False(t, apperr.IsNetwork(err))
}

func TestCreateClient_TransportFailure(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/clients/").
		ReplyError(errors.New("connection refused"))

	_, err := c.CreateClient(context.Background(), "tok", CreateClientRequest{}, "")

	var netErr *apperr.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 0, netErr.StatusCode)
}

func TestRefreshToken(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/auth/refresh/").
		JSON(map[string]any{"refresh": "refresh-1"}).
		Reply(200).
		JSON(map[string]any{"access": "access-2"})

	access, refresh, err := c.RefreshToken(context.Background(), "refresh-1")

	require.NoError(t, err)
	assert.Equal(t, "access-2", access)
	assert.Empty(t, refresh)
}

func TestRefreshToken_Rejected(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Post("/api/auth/refresh/").
		Reply(401).
		JSON(map[string]any{"detail": "Token is blacklisted"})

	_, _, err := c.RefreshToken(context.Background(), "refresh-1")

	assert.True(t, apperr.IsAuth(err))
}

func TestFetchLookupAndPing(t *testing.T) {
	c := newTestClient(t)
	gock.New("https://intake.example.com").
		Get("/api/cities/").
		MatchHeader("Authorization", "^Bearer tok$").
		Reply(200).
		JSON([]map[string]any{{"id": 1, "name": "Almaty"}})
	gock.New("https://intake.example.com").
		Get("/api/health/").
		Reply(200)

	data, err := c.FetchLookup(context.Background(), "tok", "cities")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"Almaty"}]`, string(data))

	assert.NoError(t, c.Ping(context.Background(), "/health/"))
}
