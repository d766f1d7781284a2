package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Iqra-23/intrusion-backend/models"
)

// Resolver looks up the geo location for an IP. Implementations return nil
// (not an error) when the location cannot be determined; traffic recording
// must never block on a failed lookup.
type Resolver interface {
	Lookup(ctx context.Context, ip string) *models.Geo
}

// Client resolves IPs against an ip-api.com style JSON endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Status     string  `json:"status"`
	Country    string  `json:"countryCode"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	ISP        string  `json:"isp"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Lookup resolves ip to a location. Any failure (empty IP, transport error,
// non-success payload) yields nil.
func (c *Client) Lookup(ctx context.Context, ip string) *models.Geo {
	if ip == "" {
		return nil
	}

	// Loopback traffic has no meaningful location; return a marker so local
	// development still shows something.
	if ip == "::1" || ip == "127.0.0.1" {
		return &models.Geo{Country: "Local", City: "Localhost", Region: "N/A", ISP: "N/A"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, ip), nil)
	if err != nil {
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}
	if body.Status != "success" {
		return nil
	}

	return &models.Geo{
		Country: body.Country,
		City:    body.City,
		Region:  body.RegionName,
		ISP:     body.ISP,
		Lat:     body.Lat,
		Lon:     body.Lon,
	}
}
