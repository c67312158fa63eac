// Package gamma consumes the Polymarket gamma discovery endpoints.
package gamma

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"crossbook/pkg/httpclient"
)

const discoveryTimeout = 5 * time.Second

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: discoveryTimeout},
		baseURL:    baseURL,
	}
}

// TokenIDs handles the double-encoded JSON array from the API.
type TokenIDs []string

func (t *TokenIDs) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some responses carry a plain array instead.
		return json.Unmarshal(data, (*[]string)(t))
	}
	return json.Unmarshal([]byte(s), (*[]string)(t))
}

type Market struct {
	Question        string   `json:"question"`
	Slug            string   `json:"slug"`
	AcceptingOrders bool     `json:"acceptingOrders"`
	ClobTokenIDs    TokenIDs `json:"clobTokenIds"`
}

// GetMarketsBySlug looks up the markets published under a slot slug.
func (c *Client) GetMarketsBySlug(slug string) ([]*Market, error) {
	endpoint := "/markets?slug=" + url.QueryEscape(slug)
	return httpclient.GetResource[[]*Market](c.httpClient, c.baseURL, endpoint, []int{200})
}
